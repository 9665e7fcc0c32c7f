package watcher

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jaakkos/loomwork/internal/domain"
)

func startTestWatcher(t *testing.T, root string, ignore []string, tasks func() []domain.Task) *Watcher {
	t.Helper()
	w := New(Config{
		ProjectRoot: root,
		Ignore:      ignore,
		QuietPeriod: 50 * time.Millisecond,
	}, tasks, log.New(io.Discard, "", 0))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

// drain collects change notifications until the stream goes quiet.
func drain(w *Watcher, settle time.Duration) []domain.FileChange {
	var changes []domain.FileChange
	for {
		select {
		case c, ok := <-w.Changes():
			if !ok {
				return changes
			}
			changes = append(changes, c)
		case <-time.After(settle):
			return changes
		}
	}
}

func TestBurstCoalescesToOneNotification(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root, nil, nil)

	path := filepath.Join(root, "main.go")
	for i := 0; i < 10; i++ {
		if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	changes := drain(w, 500*time.Millisecond)
	if len(changes) != 1 {
		t.Fatalf("expected 1 coalesced notification, got %d: %+v", len(changes), changes)
	}
	if changes[0].RelPath != "main.go" {
		t.Errorf("expected rel path main.go, got %s", changes[0].RelPath)
	}
}

func TestSeparateFilesNotifySeparately(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root, nil, nil)

	for _, name := range []string{"a.go", "b.go"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	changes := drain(w, 500*time.Millisecond)
	if len(changes) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %+v", len(changes), changes)
	}
}

func TestIgnorePatternsSuppressNotifications(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root, []string{"*.log", ".loomwork"}, nil)

	if err := os.WriteFile(filepath.Join(root, "server.log"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "kept.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	changes := drain(w, 500*time.Millisecond)
	if len(changes) != 1 || changes[0].RelPath != "kept.go" {
		t.Fatalf("expected only kept.go, got %+v", changes)
	}
}

func TestChangeResolvesToOwningTask(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "auth"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	tasks := func() []domain.Task {
		return []domain.Task{{ID: "auth-1", Files: []string{"auth"}}}
	}
	w := startTestWatcher(t, root, nil, tasks)

	if err := os.WriteFile(filepath.Join(root, "auth", "login.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	changes := drain(w, 500*time.Millisecond)
	if len(changes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(changes))
	}
	if changes[0].TaskID != "auth-1" {
		t.Errorf("expected change attributed to auth-1, got %q", changes[0].TaskID)
	}
}

func TestNewDirectoryExtendsWatch(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root, nil, nil)

	sub := filepath.Join(root, "newpkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "file.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	changes := drain(w, 500*time.Millisecond)
	found := false
	for _, c := range changes {
		if c.RelPath == "newpkg/file.go" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected notification from the new directory, got %+v", changes)
	}
}

func TestStopClosesStreamAndCancelsTimers(t *testing.T) {
	root := t.TempDir()
	w := New(Config{ProjectRoot: root, QuietPeriod: time.Hour}, nil, log.New(io.Discard, "", 0))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Schedule a pending timer, then stop before it fires.
	if err := os.WriteFile(filepath.Join(root, "pending.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	if _, ok := <-w.Changes(); ok {
		t.Errorf("expected closed stream with no emissions after Stop")
	}
	w.Stop() // idempotent
}

func TestStopDuringInFlightEmit(t *testing.T) {
	root := t.TempDir()

	// A slow board lookup holds emit between dropping and retaking its lock,
	// exactly where Stop used to be able to close the stream underneath it.
	var once sync.Once
	resolving := make(chan struct{})
	tasks := func() []domain.Task {
		once.Do(func() { close(resolving) })
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	w := New(Config{ProjectRoot: root, QuietPeriod: 5 * time.Millisecond}, tasks, log.New(io.Discard, "", 0))
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "racy.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-resolving
	w.Stop()

	// The in-flight emit must either have landed before Stop or been
	// discarded; draining the closed stream must not panic.
	for range w.Changes() {
	}
}

func TestIgnorePatternsMatchRelativeToRoot(t *testing.T) {
	// A project checked out beneath a directory named like an ignore pattern
	// must still be observed; only matches inside the tree count.
	root := filepath.Join(t.TempDir(), "node_modules", "app")
	if err := os.MkdirAll(filepath.Join(root, "node_modules"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	w := startTestWatcher(t, root, []string{"node_modules"}, nil)

	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	changes := drain(w, 500*time.Millisecond)
	if len(changes) != 1 || changes[0].RelPath != "main.go" {
		t.Fatalf("expected only main.go, got %+v", changes)
	}
}

func TestStartOnMissingRoot(t *testing.T) {
	w := New(Config{ProjectRoot: "/nonexistent/path/xyz"}, nil, log.New(io.Discard, "", 0))
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatalf("expected error for missing root")
	}
}
