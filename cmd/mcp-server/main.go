// Loomwork MCP Server
// Stdio for the primary client, HTTP for the dashboard and extra clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/archive"
	"github.com/jaakkos/loomwork/internal/checkpoint"
	"github.com/jaakkos/loomwork/internal/dashboard"
	"github.com/jaakkos/loomwork/internal/domain"
	"github.com/jaakkos/loomwork/internal/eventlog"
	"github.com/jaakkos/loomwork/internal/policy"
	"github.com/jaakkos/loomwork/internal/repository"
	"github.com/jaakkos/loomwork/internal/tools/session"
	"github.com/jaakkos/loomwork/internal/watcher"
)

// Version is set by -ldflags at build time.
var Version = "dev"

func main() {
	// Handle CLI subcommands before starting the MCP server.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "status":
			runStatusCommand()
			return
		case "--version", "-v", "version":
			fmt.Println("loomwork " + Version)
			return
		}
	}

	// Load config
	tmpLogger := log.New(os.Stderr, "[loomwork] ", log.LstdFlags|log.Lshortfile)
	pol := loadPolicy(tmpLogger)

	// Set up logging
	logger := setupLogger(pol.LogFile())
	logger.Println("Starting loomwork server...")
	logger.Printf("Log file: %s", pol.LogFile())
	logger.Printf("Project root: %s", pol.ProjectRoot())

	// Session repository and store
	repo, err := repository.NewSessionRepository(pol.StateDir())
	if err != nil {
		logger.Fatalf("Session repository: %v", err)
	}
	store := app.NewSessionStore(repo, logger)

	outcome, err := store.Initialize(pol.ProjectRoot())
	if err != nil {
		logger.Fatalf("Initialize session: %v", err)
	}
	logger.Printf("Session initialized (%s)", outcome)

	// Event journal: one file per session lifetime, fed by state events.
	evlog, err := eventlog.Open(pol.EventLogDir(), time.Now(), logger)
	if err != nil {
		logger.Fatalf("Event log: %v", err)
	}
	store.AddSink(evlog)
	logger.Printf("Event log: %s", evlog.Path())

	// Broadcaster for dashboard SSE and any future subscribers.
	broadcaster := app.NewBroadcaster()
	store.AddSink(broadcaster)

	// Checkpoint manager: powers auto-checkpoints and the recovery tools.
	cpm, err := checkpoint.NewManager(pol.CheckpointDir(), logger)
	if err != nil {
		logger.Fatalf("Checkpoint manager: %v", err)
	}
	store.SetCheckpointer(cpm)

	// Document archive (optional, FTS5-based)
	var arch *archive.Store
	if pol.ArchiveEnabled() {
		arch, err = archive.NewStore(pol.ArchiveDBPath())
		if err != nil {
			logger.Printf("Warning: archive init failed: %v (feature disabled)", err)
			arch = nil
		} else {
			logger.Printf("Archive: %s", pol.ArchiveDBPath())
		}
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ignore SIGHUP so the server keeps running when daemonized.
	signal.Ignore(syscall.SIGHUP)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// File watcher: debounced change notifications resolved to owning tasks.
	// Watch failure degrades the session to manual tracking, it never aborts.
	w := watcher.New(watcher.Config{
		ProjectRoot: pol.ProjectRoot(),
		Ignore:      pol.IgnorePatterns(),
		QuietPeriod: pol.DebounceInterval(),
	}, func() []domain.Task {
		if s := store.Snapshot(); s != nil {
			return s.Tasks
		}
		return nil
	}, logger)

	watcherRunning := false
	if err := w.Start(); err != nil {
		if errors.Is(err, app.ErrWatchUnavailable) {
			logger.Printf("Warning: file watching unavailable: %v (continuing without it)", err)
		} else {
			logger.Printf("Warning: watcher start: %v (continuing without it)", err)
		}
	} else {
		watcherRunning = true
		go func() {
			for change := range w.Changes() {
				ev := domain.Event{
					Kind:      domain.EventFileChanged,
					TaskID:    change.TaskID,
					Detail:    fmt.Sprintf("%s %s", change.Kind, change.RelPath),
					Timestamp: change.Timestamp,
				}
				broadcaster.Publish(ev)
				evlog.Publish(ev)
			}
		}()
		logger.Printf("Watching %s (debounce %s)", pol.ProjectRoot(), pol.DebounceInterval())
	}

	// Build the MCPServer
	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if message != nil {
			logger.Printf("Calling tool: %s", message.Params.Name)
		}
	})

	mcpServer := server.NewMCPServer(
		"loomwork",
		Version,
		server.WithInstructions(session.InstructionsText()),
		server.WithHooks(hooks),
	)

	regOpts := []session.RegisterOption{
		session.WithCheckpointManager(cpm),
		session.WithEventLog(evlog),
		session.WithPathValidator(pol),
	}
	if arch != nil {
		regOpts = append(regOpts, session.WithArchive(arch))
	}
	session.Register(mcpServer, store, logger, pol, regOpts...)

	// Start HTTP server in background (dashboard and extra MCP clients)
	httpShutdown := startHTTPServer(mcpServer, store, broadcaster, pol.HTTPPort(), logger)

	// Run stdio server in foreground (primary client)
	logger.Println("Stdio ready")
	stdioSrv := server.NewStdioServer(mcpServer)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Printf("Stdio server stopped: %v", err)
	}

	// Primary client disconnected -- shut everything down.
	cancel()
	httpShutdown()

	if watcherRunning {
		w.Stop()
	}

	// Best-effort shutdown checkpoint so the next run can recover even if
	// the last mutation's auto-checkpoint was disabled.
	if s := store.Snapshot(); s != nil {
		if name, err := cpm.WriteCheckpoint(s, "shutdown"); err != nil {
			logger.Printf("Warning: shutdown checkpoint: %v", err)
		} else {
			logger.Printf("Shutdown checkpoint: %s", name)
		}
	}

	if arch != nil {
		if err := arch.Close(); err != nil {
			logger.Printf("Warning: close archive: %v", err)
		}
	}
	if err := evlog.Close(); err != nil {
		logger.Printf("Warning: close event log: %v", err)
	}

	logger.Println("Server stopped")
}

// startHTTPServer starts the HTTP server in the background for the dashboard
// and external clients. Returns a shutdown function. Uses net.Listen to
// support port 0 (auto-assign) for running multiple instances.
func startHTTPServer(mcpServer *server.MCPServer, store *app.SessionStore, broadcaster *app.Broadcaster, port int, logger *log.Logger) func() {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Fatalf("HTTP listen: %v", err)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://localhost:%d", actualPort)

	logger.Printf("HTTP server on :%d", actualPort)
	logger.Printf("  Clients connect at: %s/mcp", baseURL)
	logger.Printf("  Dashboard:          %s/dashboard", baseURL)

	sseSrv := server.NewSSEServer(mcpServer, server.WithBaseURL(baseURL))
	streamSrv := server.NewStreamableHTTPServer(mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseSrv)
	mux.Handle("/sse/", sseSrv)
	mux.Handle("/message", sseSrv)
	mux.Handle("/mcp", streamSrv)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		phase := "idle"
		if s := store.Snapshot(); s != nil {
			phase = string(s.Phase)
		}
		fmt.Fprintf(w, `{"status":"ok","port":%d,"phase":%q}`, actualPort, phase)
	})

	dash := dashboard.NewHandler(store, broadcaster)
	dash.RegisterRoutes(mux)

	httpServer := &http.Server{Handler: mux}

	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}
}

// setupLogger creates a logger that writes to a log file and optionally stderr.
// When stderr is a terminal (interactive use), logs go to both stderr and the
// file. When stderr is redirected (daemon mode via nohup), logs go only to
// the file to avoid duplicate lines.
func setupLogger(logFilePath string) *log.Logger {
	var writers []io.Writer

	stderrIsTerminal := false
	if info, err := os.Stderr.Stat(); err == nil {
		stderrIsTerminal = (info.Mode() & os.ModeCharDevice) != 0
	}

	hasLogFile := false
	lower := strings.ToLower(logFilePath)
	if lower != "none" && lower != "off" && logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err == nil {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, f)
				hasLogFile = true
			} else {
				fmt.Fprintf(os.Stderr, "[loomwork] Warning: cannot open log file %s: %v\n", logFilePath, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "[loomwork] Warning: cannot create log dir %s: %v\n", filepath.Dir(logFilePath), err)
		}
	}

	if stderrIsTerminal || !hasLogFile {
		writers = append(writers, os.Stderr)
	}

	return log.New(io.MultiWriter(writers...), "[loomwork] ", log.LstdFlags|log.Lshortfile)
}

// loadPolicy loads policy configuration from MCP_CONFIG or defaults. A config
// without a project root follows the server's working directory.
func loadPolicy(logger *log.Logger) *policy.Policy {
	cfg := policy.DefaultConfig()
	if configPath := os.Getenv("MCP_CONFIG"); configPath != "" {
		var err error
		cfg, err = policy.LoadConfig(configPath)
		if err != nil {
			logger.Printf("Warning: failed to load config %s: %v, using defaults", configPath, err)
			cfg = policy.DefaultConfig()
		}
	}
	pol := policy.New(cfg)
	if pol.ProjectRoot() == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get working directory: %v\n", err)
			os.Exit(1)
		}
		pol.SetProjectRoot(cwd)
	}
	return pol
}

// runStatusCommand implements "loomwork status".
func runStatusCommand() {
	logger := log.New(os.Stderr, "", 0)
	pol := loadPolicy(logger)

	repo, err := repository.NewSessionRepository(pol.StateDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sess, err := repo.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("phase=idle tasks=0 in_progress=0 done=0")
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	inProgress, done := 0, 0
	for _, t := range sess.Tasks {
		switch t.Status {
		case domain.StatusInProgress:
			inProgress++
		case domain.StatusDone:
			done++
		}
	}
	fmt.Printf("phase=%s tasks=%d in_progress=%d done=%d\n",
		sess.Phase, len(sess.Tasks), inProgress, done)
}
