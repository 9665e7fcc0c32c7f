package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/domain"
)

// registerAddTask registers the add_task tool.
func registerAddTask(add addFunc, store *app.SessionStore, paths PathValidator, logger *log.Logger) {
	add(
		mcp.NewTool("add_task",
			mcp.WithDescription("Add a task to the session plan. Task ids are caller-chosen and must be unique within the session."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Unique task id (e.g. '1', 'auth-login')")),
			mcp.WithString("description", mcp.Required(), mcp.Description("What the task accomplishes")),
			mcp.WithString("assignee", mcp.Description("Who does the work (default: the session's default assignee)"), mcp.Enum("human", "ai")),
			mcp.WithArray("files", mcp.Description("Files or directories this task owns, relative to the project root")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			id, err := requireString(args, "id")
			if err != nil {
				return nil, err
			}
			description, err := requireString(args, "description")
			if err != nil {
				return nil, err
			}
			assignee := domain.Assignee(optionalString(args, "assignee", ""))
			files := stringList(args, "files")
			if paths != nil {
				for _, f := range files {
					if _, err := paths.ValidatePath(f); err != nil {
						return nil, fmt.Errorf("file %q: %v", f, err)
					}
				}
			}

			if err := store.AddTask(id, description, assignee, files); err != nil {
				if errors.Is(err, app.ErrConflict) {
					return nil, fmt.Errorf("task %q already exists; pick a different id", id)
				}
				return nil, err
			}
			// An empty assignee falls back to the session's default preference.
			if task := store.Snapshot().TaskByID(id); task != nil {
				assignee = task.Assignee
			}
			logger.Printf("task %s added (%s)", id, assignee)
			return mcp.NewToolResultText(fmt.Sprintf("Task %s added: %s (assignee: %s)", id, description, assignee)), nil
		},
	)
}

// registerUpdateTaskStatus registers the update_task_status tool.
func registerUpdateTaskStatus(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("update_task_status",
			mcp.WithDescription("Update the status of a task. Moving a task to done writes an automatic checkpoint when auto-checkpointing is on."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("New status"), mcp.Enum("todo", "in_progress", "review", "done")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			id, err := requireString(args, "id")
			if err != nil {
				return nil, err
			}
			status, err := requireString(args, "status")
			if err != nil {
				return nil, err
			}

			if err := store.UpdateTaskStatus(id, domain.TaskStatus(status)); err != nil {
				if errors.Is(err, app.ErrNotFound) {
					return nil, fmt.Errorf("task %q not found", id)
				}
				return nil, err
			}
			logger.Printf("task %s -> %s", id, status)
			return mcp.NewToolResultText(fmt.Sprintf("Task %s is now %s", id, status)), nil
		},
	)
}

// registerReassignTask registers the reassign_task tool.
func registerReassignTask(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("reassign_task",
			mcp.WithDescription("Hand a task over to the other collaborator."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("assignee", mcp.Required(), mcp.Description("New assignee"), mcp.Enum("human", "ai")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			id, err := requireString(args, "id")
			if err != nil {
				return nil, err
			}
			assignee, err := requireString(args, "assignee")
			if err != nil {
				return nil, err
			}

			if err := store.ReassignTask(id, domain.Assignee(assignee)); err != nil {
				if errors.Is(err, app.ErrNotFound) {
					return nil, fmt.Errorf("task %q not found", id)
				}
				return nil, err
			}
			logger.Printf("task %s reassigned to %s", id, assignee)
			return mcp.NewToolResultText(fmt.Sprintf("Task %s reassigned to %s", id, assignee)), nil
		},
	)
}

// registerSetReview registers the set_review tool.
func registerSetReview(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("set_review",
			mcp.WithDescription("Record the review outcome for a task."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Review outcome (e.g. 'approved', 'changes_requested')")),
			mcp.WithString("notes", mcp.Description("Reviewer notes")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			id, err := requireString(args, "id")
			if err != nil {
				return nil, err
			}
			status, err := requireString(args, "status")
			if err != nil {
				return nil, err
			}
			notes := optionalString(args, "notes", "")

			if err := store.SetReviewStatus(id, status, notes); err != nil {
				if errors.Is(err, app.ErrNotFound) {
					return nil, fmt.Errorf("task %q not found", id)
				}
				return nil, err
			}
			logger.Printf("task %s review: %s", id, status)
			return mcp.NewToolResultText(fmt.Sprintf("Review for task %s recorded: %s", id, status)), nil
		},
	)
}
