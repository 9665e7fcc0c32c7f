package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/eventlog"
)

// registerLogNote registers the log_note tool.
func registerLogNote(add addFunc, events *eventlog.Log, logger *log.Logger) {
	add(
		mcp.NewTool("log_note",
			mcp.WithDescription("Append a free-form note to the session event log. Notes are not session state; they are a durable record for later review."),
			mcp.WithString("source", mcp.Required(), mcp.Description("Who is writing the note"), mcp.Enum("human", "ai", "delegate")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
			mcp.WithString("task_id", mcp.Description("Related task id, if any")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			source, err := requireString(args, "source")
			if err != nil {
				return nil, err
			}
			content, err := requireString(args, "content")
			if err != nil {
				return nil, err
			}
			taskID := optionalString(args, "task_id", "")

			if err := events.Log(eventlog.Source(source), "note", content, taskID); err != nil {
				return nil, fmt.Errorf("append note: %w", err)
			}
			logger.Printf("note logged by %s", source)
			return mcp.NewToolResultText("Note logged"), nil
		},
	)
}

// registerRecentEvents registers the recent_events tool.
func registerRecentEvents(add addFunc, events *eventlog.Log) {
	add(
		mcp.NewTool("recent_events",
			mcp.WithDescription("Read the most recent entries from the session event log, oldest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default: 20, max: 200)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			limit := optionalInt(args, "limit", 20, 1, 200)

			records, err := events.History(limit)
			if err != nil {
				return nil, fmt.Errorf("read event log: %w", err)
			}
			if len(records) == 0 {
				return mcp.NewToolResultText("No events logged yet"), nil
			}

			var buf strings.Builder
			for _, r := range records {
				fmt.Fprintf(&buf, "[%s] %s/%s", r.Timestamp.Format("15:04:05"), r.Source, r.Kind)
				if r.TaskID != "" {
					fmt.Fprintf(&buf, " (task %s)", r.TaskID)
				}
				if r.Content != "" {
					fmt.Fprintf(&buf, ": %s", r.Content)
				}
				buf.WriteByte('\n')
			}
			return mcp.NewToolResultText(buf.String()), nil
		},
	)
}
