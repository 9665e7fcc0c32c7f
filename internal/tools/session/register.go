// Package session exposes the collaboration session engine as MCP tools.
// Each tool maps onto one state-store operation; handlers validate input,
// call the store, and return a short human-readable result.
package session

import (
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/archive"
	"github.com/jaakkos/loomwork/internal/checkpoint"
	"github.com/jaakkos/loomwork/internal/eventlog"
)

// ToolGate decides whether a named tool should be registered.
type ToolGate interface {
	IsToolEnabled(name string) bool
}

// PathValidator scopes declared file paths to the project root.
// *policy.Policy implements it.
type PathValidator interface {
	ValidatePath(path string) (string, error)
}

// RegisterOption configures optional dependencies for tool registration.
type RegisterOption func(*registerOpts)

type registerOpts struct {
	checkpoints *checkpoint.Manager
	archive     *archive.Store
	events      *eventlog.Log
	paths       PathValidator
}

// WithCheckpointManager enables the checkpoint and recovery tools.
func WithCheckpointManager(m *checkpoint.Manager) RegisterOption {
	return func(o *registerOpts) { o.checkpoints = m }
}

// WithArchive enables the archive_document and search_archive tools.
func WithArchive(a *archive.Store) RegisterOption {
	return func(o *registerOpts) { o.archive = a }
}

// WithEventLog enables the log_note and recent_events tools.
func WithEventLog(l *eventlog.Log) RegisterOption {
	return func(o *registerOpts) { o.events = l }
}

// WithPathValidator makes add_task reject file declarations that resolve
// outside the project root. Without it declarations are taken as-is.
func WithPathValidator(v PathValidator) RegisterOption {
	return func(o *registerOpts) { o.paths = v }
}

// Register registers the session tools with the mcp-go server. Tools filtered
// out by the gate are simply not registered, so clients never see them.
func Register(s *server.MCPServer, store *app.SessionStore, logger *log.Logger, gate ToolGate, opts ...RegisterOption) {
	var o registerOpts
	for _, opt := range opts {
		opt(&o)
	}

	add := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		if gate != nil && !gate.IsToolEnabled(tool.Name) {
			logger.Printf("tool %s disabled by config", tool.Name)
			return
		}
		s.AddTool(tool, handler)
	}

	// Phase and status tools
	registerSetPhase(add, store, logger)
	registerSessionStatus(add, store, o.checkpoints)

	// Task tools
	registerAddTask(add, store, o.paths, logger)
	registerUpdateTaskStatus(add, store, logger)
	registerReassignTask(add, store, logger)
	registerSetReview(add, store, logger)

	// Design and delegation tools
	registerSetDesign(add, store, logger)
	registerRecordDelegation(add, store, logger)

	// Preferences and teardown
	registerSetPreferences(add, store, logger)
	registerTeardownSession(add, store, logger)

	// Checkpoint and recovery tools (optional)
	if o.checkpoints != nil {
		registerCreateCheckpoint(add, store, o.checkpoints, logger)
		registerListCheckpoints(add, o.checkpoints)
		registerRecoverSession(add, store, o.checkpoints, logger)
	}

	// Event log tools (optional)
	if o.events != nil {
		registerLogNote(add, o.events, logger)
		registerRecentEvents(add, o.events)
	}

	// Archive tools (optional)
	if o.archive != nil {
		registerArchiveDocument(add, store, o.archive, logger)
		registerSearchArchive(add, o.archive, logger)
	}
}

// addFunc is the registration callback passed to per-tool register functions.
type addFunc func(tool mcp.Tool, handler server.ToolHandlerFunc)
