// Package checkpoint writes and reads full session snapshots. Snapshots are
// always complete copies, never diffs: sessions are small (tens of tasks),
// so a recovering process reads exactly one file and never replays a chain.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jaakkos/loomwork/internal/domain"
)

// stampLayout embeds a filesystem-safe timestamp in checkpoint names.
// Nanosecond precision keeps rapid consecutive snapshots distinct.
const stampLayout = "20060102T150405.000000000"

const filePrefix = "checkpoint-"

// Manager writes timestamp-named snapshot files under a directory.
// It implements app.CheckpointWriter.
type Manager struct {
	dir    string
	logger *log.Logger
	now    func() time.Time // overridable in tests
}

// NewManager creates the checkpoint directory if needed.
func NewManager(dir string, logger *log.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Manager{dir: dir, logger: logger, now: time.Now}, nil
}

// WriteCheckpoint derives the decision list and deduplicated ownership set
// from the session and writes one complete snapshot. The context note is
// free text describing why the snapshot was taken.
func (m *Manager) WriteCheckpoint(session *domain.Session, context string) (string, error) {
	if session == nil {
		return "", fmt.Errorf("session is nil")
	}
	ts := m.now()
	cp := Snapshot(session, ts, context)

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode checkpoint: %w", err)
	}

	name := filePrefix + ts.UTC().Format(stampLayout) + ".json"
	path := filepath.Join(m.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize checkpoint: %w", err)
	}
	return name, nil
}

// Snapshot builds a full checkpoint record from a session without writing it.
func Snapshot(session *domain.Session, ts time.Time, context string) *domain.Checkpoint {
	sess := session.Clone()
	cp := &domain.Checkpoint{
		Timestamp:   ts,
		Phase:       sess.Phase,
		Tasks:       sess.Tasks,
		Design:      sess.Design,
		Delegations: sess.Delegations,
		Context:     context,
	}
	if sess.Design != nil {
		cp.Decisions = append([]string(nil), sess.Design.Decisions...)
	}
	// Declarative ownership union, deduplicated in declaration order. This
	// comes from task metadata, never from version-control state.
	seen := make(map[string]bool)
	for _, t := range sess.Tasks {
		for _, f := range t.Files {
			if !seen[f] {
				seen[f] = true
				cp.OwnedFiles = append(cp.OwnedFiles, f)
			}
		}
	}
	return cp
}

// ListCheckpoints returns all snapshot names newest-first by the timestamp
// embedded in the name. Files that do not parse as checkpoints are skipped.
func (m *Manager) ListCheckpoints() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	type stamped struct {
		name string
		ts   time.Time
	}
	var found []stamped
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json")
		ts, err := time.Parse(stampLayout, raw)
		if err != nil {
			continue
		}
		found = append(found, stamped{name: name, ts: ts})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ts.After(found[j].ts) })

	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.name
	}
	return names, nil
}

// ReadCheckpoint reads one snapshot by name.
func (m *Manager) ReadCheckpoint(name string) (*domain.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", name, err)
	}
	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", name, err)
	}
	return &cp, nil
}

// ReadLatestCheckpoint returns the most recent snapshot, or nil when none
// exist.
func (m *Manager) ReadLatestCheckpoint() (*domain.Checkpoint, error) {
	names, err := m.ListCheckpoints()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return m.ReadCheckpoint(names[0])
}
