package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/checkpoint"
	"github.com/jaakkos/loomwork/internal/domain"
)

// registerCreateCheckpoint registers the create_checkpoint tool.
func registerCreateCheckpoint(add addFunc, store *app.SessionStore, manager *checkpoint.Manager, logger *log.Logger) {
	add(
		mcp.NewTool("create_checkpoint",
			mcp.WithDescription("Write a full checkpoint of the current session. Checkpoints are immutable snapshots used for recovery after a crash or bad merge."),
			mcp.WithString("context", mcp.Description("Why this checkpoint was taken (e.g. 'before refactor')")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			checkpointContext := optionalString(args, "context", "manual")

			session := store.Snapshot()
			if session == nil {
				return nil, fmt.Errorf("no active session")
			}
			name, err := manager.WriteCheckpoint(session, checkpointContext)
			if err != nil {
				return nil, fmt.Errorf("write checkpoint: %w", err)
			}
			logger.Printf("checkpoint written: %s", name)
			return mcp.NewToolResultText(fmt.Sprintf("Checkpoint written: %s", name)), nil
		},
	)
}

// registerListCheckpoints registers the list_checkpoints tool.
func registerListCheckpoints(add addFunc, manager *checkpoint.Manager) {
	add(
		mcp.NewTool("list_checkpoints",
			mcp.WithDescription("List available checkpoints, newest first."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			names, err := manager.ListCheckpoints()
			if err != nil {
				return nil, fmt.Errorf("list checkpoints: %w", err)
			}
			if len(names) == 0 {
				return mcp.NewToolResultText("No checkpoints"), nil
			}
			return mcp.NewToolResultText(strings.Join(names, "\n")), nil
		},
	)
}

// registerRecoverSession registers the recover_session tool.
func registerRecoverSession(add addFunc, store *app.SessionStore, manager *checkpoint.Manager, logger *log.Logger) {
	add(
		mcp.NewTool("recover_session",
			mcp.WithDescription("Merge a checkpoint into the live session. The checkpoint's phase wins; tasks missing from the session are recreated; tasks already present only get their status restored. Work added since the checkpoint is kept."),
			mcp.WithString("name", mcp.Description("Checkpoint file name. Omit to use the newest checkpoint.")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			name := optionalString(args, "name", "")

			var cp *domain.Checkpoint
			var err error
			if name == "" {
				cp, err = manager.ReadLatestCheckpoint()
				if err != nil {
					return nil, fmt.Errorf("read latest checkpoint: %w", err)
				}
				if cp == nil {
					return nil, fmt.Errorf("no checkpoints available")
				}
			} else {
				cp, err = manager.ReadCheckpoint(name)
				if err != nil {
					return nil, fmt.Errorf("read checkpoint %s: %w", name, err)
				}
			}

			stats, err := store.Recover(cp)
			if err != nil {
				return nil, fmt.Errorf("recover: %w", err)
			}
			logger.Printf("session recovered from checkpoint (phase=%s, recreated=%d, restored=%d)",
				cp.Phase, stats.TasksRecreated, stats.StatusesRestored)
			return mcp.NewToolResultText(fmt.Sprintf(
				"Recovered to phase %s: %d tasks recreated, %d statuses restored, %d delegations merged (%d already present)",
				cp.Phase, stats.TasksRecreated, stats.StatusesRestored, stats.DelegationsMerged, stats.DelegationsSkipped)), nil
		},
	)
}
