package session

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/domain"
)

// registerSetDesign registers the set_design tool.
func registerSetDesign(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("set_design",
			mcp.WithDescription("Record the agreed design for the session. The design is replaced wholesale on every call; include the full document each time."),
			mcp.WithString("task_description", mcp.Required(), mcp.Description("One line describing what is being built")),
			mcp.WithString("narrative", mcp.Required(), mcp.Description("The design narrative: approach, structure, tradeoffs")),
			mcp.WithArray("decisions", mcp.Description("Explicit decisions made, one string each")),
			mcp.WithArray("deferred", mcp.Description("Items explicitly deferred to later")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			taskDescription, err := requireString(args, "task_description")
			if err != nil {
				return nil, err
			}
			narrative, err := requireString(args, "narrative")
			if err != nil {
				return nil, err
			}

			doc := domain.DesignDocument{
				TaskDescription: taskDescription,
				Narrative:       narrative,
				Decisions:       stringList(args, "decisions"),
				Deferred:        stringList(args, "deferred"),
			}
			if err := store.SetDesign(doc); err != nil {
				return nil, err
			}
			logger.Printf("design set: %s (%d decisions)", taskDescription, len(doc.Decisions))
			return mcp.NewToolResultText(fmt.Sprintf("Design recorded: %s (%d decisions, %d deferred)",
				taskDescription, len(doc.Decisions), len(doc.Deferred))), nil
		},
	)
}
