package session

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/domain"
)

// registerRecordDelegation registers the record_delegation tool.
func registerRecordDelegation(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("record_delegation",
			mcp.WithDescription("Record that a task was handed to an automated worker. Call again with the same task id to record a retry; records accumulate, they are never overwritten."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task the worker is handling")),
			mcp.WithString("external_id", mcp.Description("Worker or job identifier in the external system")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Delegation status (e.g. 'spawned', 'running', 'finished', 'failed')")),
			mcp.WithString("instructions", mcp.Description("The instructions handed to the worker")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			taskID, err := requireString(args, "task_id")
			if err != nil {
				return nil, err
			}
			status, err := requireString(args, "status")
			if err != nil {
				return nil, err
			}

			rec := domain.DelegatedWork{
				TaskID:       taskID,
				ExternalID:   optionalString(args, "external_id", ""),
				Status:       status,
				Instructions: optionalString(args, "instructions", ""),
			}
			if err := store.AddDelegatedWork(rec); err != nil {
				return nil, err
			}
			logger.Printf("delegation recorded: task %s [%s]", taskID, status)
			return mcp.NewToolResultText(fmt.Sprintf("Delegation recorded for task %s (status: %s)", taskID, status)), nil
		},
	)
}
