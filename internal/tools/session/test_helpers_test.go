package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/checkpoint"
	"github.com/jaakkos/loomwork/internal/domain"
	"github.com/jaakkos/loomwork/internal/eventlog"
	"github.com/jaakkos/loomwork/internal/policy"
)

type memRepo struct {
	mu      sync.Mutex
	session *domain.Session
}

func (r *memRepo) Load() (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, fmt.Errorf("session file: %w", os.ErrNotExist)
	}
	return r.session.Clone(), nil
}

func (r *memRepo) Save(s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = s.Clone()
	return nil
}

func (r *memRepo) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = nil
	return nil
}

// testServer creates an MCPServer with all session tools registered.
func testServer(t *testing.T) (*server.MCPServer, *app.SessionStore, *checkpoint.Manager) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	store := app.NewSessionStore(&memRepo{}, logger)
	if _, err := store.Initialize("/tmp/project"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	manager, err := checkpoint.NewManager(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	store.SetCheckpointer(manager)

	events, err := eventlog.Open(t.TempDir(), time.Now(), logger)
	if err != nil {
		t.Fatalf("eventlog.Open: %v", err)
	}
	t.Cleanup(func() { events.Close() })

	cfg := policy.DefaultConfig()
	cfg.ProjectRoot = "/tmp/project"
	pol := policy.New(cfg)

	s := server.NewMCPServer("test", "1.0.0")
	Register(s, store, logger, pol,
		WithCheckpointManager(manager),
		WithEventLog(events),
		WithPathValidator(pol),
	)
	return s, store, manager
}

// callTool calls a registered tool via the MCPServer's HandleMessage.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()

	reqJSON, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	respJSON := s.HandleMessage(context.Background(), reqJSON)

	respBytes, marshalErr := json.Marshal(respJSON)
	if marshalErr != nil {
		t.Fatalf("marshal response: %v", marshalErr)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	var result mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return &result, nil
}

// resultText extracts the first text content from a CallToolResult.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}
