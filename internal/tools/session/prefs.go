package session

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/domain"
)

// registerSetPreferences registers the set_preferences tool.
func registerSetPreferences(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("set_preferences",
			mcp.WithDescription("Update session preferences. Omitted fields keep their current value."),
			mcp.WithString("default_assignee", mcp.Description("Default assignee for new tasks"), mcp.Enum("human", "ai")),
			mcp.WithBoolean("auto_checkpoint", mcp.Description("Write a checkpoint on phase changes and task completion")),
			mcp.WithBoolean("review_before_integrate", mcp.Description("Require review before integration")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()

			session := store.Snapshot()
			if session == nil {
				return nil, fmt.Errorf("no active session")
			}
			prefs := session.Preferences

			if v, ok := args["default_assignee"].(string); ok && v != "" {
				prefs.DefaultAssignee = domain.Assignee(v)
			}
			if v, ok := args["auto_checkpoint"].(bool); ok {
				prefs.AutoCheckpoint = v
			}
			if v, ok := args["review_before_integrate"].(bool); ok {
				prefs.ReviewBeforeIntegrate = v
			}

			if err := store.SetPreferences(prefs); err != nil {
				return nil, err
			}
			logger.Printf("preferences updated: assignee=%s auto_checkpoint=%t review=%t",
				prefs.DefaultAssignee, prefs.AutoCheckpoint, prefs.ReviewBeforeIntegrate)
			return mcp.NewToolResultText(fmt.Sprintf(
				"Preferences updated (default_assignee: %s, auto_checkpoint: %t, review_before_integrate: %t)",
				prefs.DefaultAssignee, prefs.AutoCheckpoint, prefs.ReviewBeforeIntegrate)), nil
		},
	)
}

// registerTeardownSession registers the teardown_session tool.
func registerTeardownSession(add addFunc, store *app.SessionStore, logger *log.Logger) {
	add(
		mcp.NewTool("teardown_session",
			mcp.WithDescription("End the session. By default the persisted state is kept on disk so the next run resumes it; set delete_state to remove it."),
			mcp.WithBoolean("delete_state", mcp.Description("Also delete the persisted session state (default: false)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			deleteState, _ := args["delete_state"].(bool)

			if err := store.Teardown(deleteState); err != nil {
				return nil, err
			}
			logger.Printf("session torn down (delete_state=%t)", deleteState)
			if deleteState {
				return mcp.NewToolResultText("Session ended; persisted state deleted"), nil
			}
			return mcp.NewToolResultText("Session ended; state kept for resumption"), nil
		},
	)
}
