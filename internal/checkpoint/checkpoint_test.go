package checkpoint

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaakkos/loomwork/internal/domain"
)

func testSession() *domain.Session {
	s := domain.NewSession("/tmp/project")
	s.Phase = domain.PhaseExecuting
	s.Tasks = []domain.Task{
		{ID: "1", Description: "Implement auth", Assignee: domain.AssigneeAI, Status: domain.StatusInProgress, Files: []string{"auth/", "middleware.go"}},
		{ID: "2", Description: "Write docs", Assignee: domain.AssigneeHuman, Status: domain.StatusTodo, Files: []string{"docs/", "middleware.go"}},
	}
	s.Design = &domain.DesignDocument{
		TaskDescription: "Auth subsystem",
		Narrative:       "Token-based auth",
		Decisions:       []string{"use JWTs", "stateless sessions"},
	}
	return s
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestWriteAndReadCheckpoint(t *testing.T) {
	m := newTestManager(t)

	name, err := m.WriteCheckpoint(testSession(), "before refactor")
	if err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}

	cp, err := m.ReadCheckpoint(name)
	if err != nil {
		t.Fatalf("ReadCheckpoint: %v", err)
	}
	if cp.Phase != domain.PhaseExecuting {
		t.Errorf("expected executing phase, got %s", cp.Phase)
	}
	if len(cp.Tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(cp.Tasks))
	}
	if cp.Context != "before refactor" {
		t.Errorf("expected context note, got %q", cp.Context)
	}
	if len(cp.Decisions) != 2 || cp.Decisions[0] != "use JWTs" {
		t.Errorf("decisions not derived from design: %v", cp.Decisions)
	}
	// Ownership union dedupes in declaration order.
	want := []string{"auth/", "middleware.go", "docs/"}
	if len(cp.OwnedFiles) != len(want) {
		t.Fatalf("expected owned files %v, got %v", want, cp.OwnedFiles)
	}
	for i, f := range want {
		if cp.OwnedFiles[i] != f {
			t.Errorf("owned_files[%d]: expected %s, got %s", i, f, cp.OwnedFiles[i])
		}
	}
}

func TestListCheckpointsNewestFirst(t *testing.T) {
	m := newTestManager(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var names []string
	for i := 0; i < 3; i++ {
		stamp := base.Add(time.Duration(i) * time.Minute)
		m.now = func() time.Time { return stamp }
		name, err := m.WriteCheckpoint(testSession(), "")
		if err != nil {
			t.Fatalf("WriteCheckpoint: %v", err)
		}
		names = append(names, name)
	}

	listed, err := m.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(listed))
	}
	for i := 0; i < 3; i++ {
		if listed[i] != names[2-i] {
			t.Errorf("position %d: expected %s, got %s", i, names[2-i], listed[i])
		}
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.WriteCheckpoint(testSession(), ""); err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}
	for _, junk := range []string{"notes.txt", "checkpoint-garbage.json", "checkpoint-.json.tmp"} {
		if err := os.WriteFile(filepath.Join(m.dir, junk), []byte("x"), 0o644); err != nil {
			t.Fatalf("write junk: %v", err)
		}
	}

	listed, err := m.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("expected 1 checkpoint, got %v", listed)
	}
}

func TestReadLatestCheckpoint(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.ReadLatestCheckpoint()
	if err != nil {
		t.Fatalf("ReadLatestCheckpoint: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil with no checkpoints, got %+v", cp)
	}

	m.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	if _, err := m.WriteCheckpoint(testSession(), "first"); err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) }
	if _, err := m.WriteCheckpoint(testSession(), "second"); err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}

	cp, err = m.ReadLatestCheckpoint()
	if err != nil {
		t.Fatalf("ReadLatestCheckpoint: %v", err)
	}
	if cp == nil || cp.Context != "second" {
		t.Errorf("expected newest checkpoint, got %+v", cp)
	}
}

func TestRapidCheckpointsGetDistinctNames(t *testing.T) {
	m := newTestManager(t)
	a, err := m.WriteCheckpoint(testSession(), "")
	if err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}
	b, err := m.WriteCheckpoint(testSession(), "")
	if err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}
	if a == b {
		t.Errorf("consecutive checkpoints collided on name %s", a)
	}
}

func TestMergeRestoresPhaseAndRecreatesTasks(t *testing.T) {
	session := domain.NewSession("/tmp/project")
	session.Tasks = []domain.Task{
		{ID: "1", Description: "Implement auth", Assignee: domain.AssigneeHuman, Status: domain.StatusTodo},
	}

	cp := &domain.Checkpoint{
		Phase: domain.PhaseReviewing,
		Tasks: []domain.Task{
			{ID: "1", Description: "Old description", Assignee: domain.AssigneeAI, Status: domain.StatusDone},
			{ID: "2", Description: "Write docs", Assignee: domain.AssigneeAI, Status: domain.StatusInProgress},
		},
	}

	stats := Merge(session, cp)

	if session.Phase != domain.PhaseReviewing {
		t.Errorf("phase must come verbatim from the checkpoint, got %s", session.Phase)
	}
	if stats.TasksRecreated != 1 || stats.StatusesRestored != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	task1 := session.TaskByID("1")
	if task1.Status != domain.StatusDone {
		t.Errorf("status must be restored from the checkpoint, got %s", task1.Status)
	}
	// Local edits made after the checkpoint survive: only status is restored.
	if task1.Description != "Implement auth" || task1.Assignee != domain.AssigneeHuman {
		t.Errorf("local description/assignee clobbered: %+v", task1)
	}

	if session.TaskByID("2") == nil {
		t.Errorf("missing task must be recreated from the checkpoint")
	}
}

func TestMergeKeepsLocalWorkAddedSinceCheckpoint(t *testing.T) {
	session := domain.NewSession("/tmp/project")
	session.Tasks = []domain.Task{
		{ID: "3", Description: "Added after snapshot", Status: domain.StatusInProgress},
	}

	cp := &domain.Checkpoint{Phase: domain.PhaseExecuting}
	Merge(session, cp)

	if session.TaskByID("3") == nil {
		t.Errorf("tasks added since the checkpoint must survive recovery")
	}
}

func TestMergeDelegationsByTaskAndSpawnTime(t *testing.T) {
	spawn := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session := domain.NewSession("/tmp/project")
	session.Delegations = []domain.DelegatedWork{
		{TaskID: "1", Status: "running", SpawnedAt: spawn},
	}

	cp := &domain.Checkpoint{
		Phase: domain.PhaseExecuting,
		Delegations: []domain.DelegatedWork{
			{TaskID: "1", Status: "spawned", SpawnedAt: spawn},                       // same key: skipped
			{TaskID: "1", Status: "spawned", SpawnedAt: spawn.Add(-time.Minute)},     // earlier retry: merged
			{TaskID: "2", Status: "finished", SpawnedAt: spawn},                      // different task: merged
		},
	}

	stats := Merge(session, cp)
	if stats.DelegationsMerged != 2 || stats.DelegationsSkipped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(session.Delegations) != 3 {
		t.Errorf("expected 3 delegation records, got %d", len(session.Delegations))
	}
	// The live record for the shared key keeps its local status.
	if session.Delegations[0].Status != "running" {
		t.Errorf("local delegation record clobbered: %+v", session.Delegations[0])
	}
}

func TestMergeDesignOnlyWhenMissing(t *testing.T) {
	cpDesign := &domain.DesignDocument{TaskDescription: "From checkpoint"}

	session := domain.NewSession("/tmp/project")
	Merge(session, &domain.Checkpoint{Phase: domain.PhaseDesign, Design: cpDesign})
	if session.Design == nil || session.Design.TaskDescription != "From checkpoint" {
		t.Errorf("design should be adopted when the session has none")
	}

	session.Design = &domain.DesignDocument{TaskDescription: "Live design"}
	Merge(session, &domain.Checkpoint{Phase: domain.PhaseDesign, Design: cpDesign})
	if session.Design.TaskDescription != "Live design" {
		t.Errorf("live design must not be overwritten")
	}
}
