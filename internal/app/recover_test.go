package app

import (
	"errors"
	"testing"

	"github.com/jaakkos/loomwork/internal/checkpoint"
	"github.com/jaakkos/loomwork/internal/domain"
)

func TestRecoverMergesAndPersists(t *testing.T) {
	store, repo := newTestStore(t)
	sink := &collectSink{}
	store.AddSink(sink)

	if err := store.AddTask("1", "Implement auth", domain.AssigneeHuman, nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	savesBefore := repo.saveCount()

	cp := &domain.Checkpoint{
		Phase: domain.PhaseExecuting,
		Tasks: []domain.Task{
			{ID: "1", Description: "old text", Assignee: domain.AssigneeAI, Status: domain.StatusDone},
			{ID: "2", Description: "Write docs", Assignee: domain.AssigneeAI, Status: domain.StatusTodo},
		},
	}

	stats, err := store.Recover(cp)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if stats.TasksRecreated != 1 || stats.StatusesRestored != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Merge result is immediately durable.
	if repo.saveCount() != savesBefore+1 {
		t.Errorf("expected recovery to persist, saves %d -> %d", savesBefore, repo.saveCount())
	}
	persisted, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if persisted.Phase != domain.PhaseExecuting || len(persisted.Tasks) != 2 {
		t.Errorf("persisted state wrong: phase=%s tasks=%d", persisted.Phase, len(persisted.Tasks))
	}
	// Local fields survive; only status came back from the checkpoint.
	task1 := persisted.TaskByID("1")
	if task1.Assignee != domain.AssigneeHuman || task1.Status != domain.StatusDone {
		t.Errorf("merge asymmetry violated: %+v", task1)
	}

	kinds := sink.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != domain.EventSessionInitialized {
		t.Errorf("expected session_initialized event after recovery, got %v", kinds)
	}
}

func TestRecoverFailedSaveLeavesSessionUntouched(t *testing.T) {
	store, repo := newTestStore(t)

	repo.mu.Lock()
	repo.saveErr = errors.New("disk full")
	repo.mu.Unlock()

	cp := &domain.Checkpoint{
		Phase: domain.PhaseExecuting,
		Tasks: []domain.Task{{ID: "1", Description: "Implement auth", Status: domain.StatusTodo}},
	}
	if _, err := store.Recover(cp); err == nil {
		t.Fatal("expected error when the durable write fails")
	}

	snap := store.Snapshot()
	if snap.Phase != domain.PhaseIdle || len(snap.Tasks) != 0 {
		t.Errorf("failed recovery visible in memory: phase=%s tasks=%d", snap.Phase, len(snap.Tasks))
	}
}

func TestRecoverNilCheckpointIsNoop(t *testing.T) {
	store, repo := newTestStore(t)
	before := repo.saveCount()

	stats, err := store.Recover(nil)
	if err != nil {
		t.Fatalf("Recover(nil): %v", err)
	}
	if stats != (checkpoint.MergeStats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if repo.saveCount() != before {
		t.Errorf("nil checkpoint must not persist anything")
	}
}
