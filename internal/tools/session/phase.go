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

// registerSetPhase registers the set_phase tool.
func registerSetPhase(add addFunc, store *app.SessionStore, logger *log.Logger) {
	phases := make([]string, 0, len(domain.Phases()))
	for _, p := range domain.Phases() {
		phases = append(phases, string(p))
	}
	add(
		mcp.NewTool("set_phase",
			mcp.WithDescription("Move the collaboration session into a workflow phase. Phases do not enforce an ordering; set whichever phase the work is actually in."),
			mcp.WithString("phase", mcp.Required(), mcp.Description("Target workflow phase"), mcp.Enum(phases...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			phase, err := requireString(args, "phase")
			if err != nil {
				return nil, err
			}
			if err := store.SetPhase(domain.Phase(phase)); err != nil {
				return nil, err
			}
			logger.Printf("phase set to %s", phase)
			return mcp.NewToolResultText(fmt.Sprintf("Phase set to %s", phase)), nil
		},
	)
}

// registerSessionStatus registers the session_status tool.
func registerSessionStatus(add addFunc, store *app.SessionStore, checkpoints *checkpoint.Manager) {
	add(
		mcp.NewTool("session_status",
			mcp.WithDescription("Get a summary of the current session: phase, tasks, design, delegations, and available checkpoints. Call this at the start of your turn to orient yourself."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			session := store.Snapshot()
			if session == nil {
				return mcp.NewToolResultText("No active session"), nil
			}

			var buf strings.Builder
			fmt.Fprintf(&buf, "Phase: %s\n", session.Phase)
			fmt.Fprintf(&buf, "Project: %s\n", session.ProjectRoot)
			fmt.Fprintf(&buf, "Started: %s\n\n", session.CreatedAt.Format("2006-01-02 15:04:05"))

			if len(session.Tasks) == 0 {
				buf.WriteString("Tasks: none\n")
			} else {
				fmt.Fprintf(&buf, "Tasks (%d):\n", len(session.Tasks))
				for _, t := range session.Tasks {
					fmt.Fprintf(&buf, "  [%s] %s - %s (%s)", t.Status, t.ID, t.Description, t.Assignee)
					if t.ReviewStatus != "" {
						fmt.Fprintf(&buf, " review=%s", t.ReviewStatus)
					}
					buf.WriteByte('\n')
					if len(t.Files) > 0 {
						fmt.Fprintf(&buf, "      files: %s\n", strings.Join(t.Files, ", "))
					}
				}
			}

			if d := session.Design; d != nil {
				fmt.Fprintf(&buf, "\nDesign: %s\n", d.TaskDescription)
				for _, dec := range d.Decisions {
					fmt.Fprintf(&buf, "  - %s\n", dec)
				}
			}

			if len(session.Delegations) > 0 {
				fmt.Fprintf(&buf, "\nDelegations (%d):\n", len(session.Delegations))
				for _, w := range session.Delegations {
					fmt.Fprintf(&buf, "  %s -> %s [%s] spawned %s\n",
						w.TaskID, w.ExternalID, w.Status, w.SpawnedAt.Format("15:04:05"))
				}
			}

			if checkpoints != nil {
				names, err := checkpoints.ListCheckpoints()
				if err == nil && len(names) > 0 {
					fmt.Fprintf(&buf, "\nCheckpoints (%d, newest first):\n", len(names))
					for i, name := range names {
						if i >= 5 {
							fmt.Fprintf(&buf, "  ... and %d more\n", len(names)-i)
							break
						}
						fmt.Fprintf(&buf, "  %s\n", name)
					}
				}
			}

			return mcp.NewToolResultText(buf.String()), nil
		},
	)
}
