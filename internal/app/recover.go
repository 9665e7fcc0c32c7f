package app

import (
	"fmt"
	"time"

	"github.com/jaakkos/loomwork/internal/checkpoint"
	"github.com/jaakkos/loomwork/internal/domain"
)

// Recover merges a checkpoint into the live session using the asymmetric
// merge policy (see checkpoint.Merge) and persists the result. A fresh
// process reconstructs a session by Initialize followed by Recover with the
// latest checkpoint.
func (s *SessionStore) Recover(cp *domain.Checkpoint) (checkpoint.MergeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return checkpoint.MergeStats{}, fmt.Errorf("session store not initialized")
	}
	if cp == nil {
		return checkpoint.MergeStats{}, nil
	}

	// Merge into a clone and swap only after the write lands, matching the
	// commit ordering of mutate.
	next := s.session.Clone()
	stats := checkpoint.Merge(next, cp)
	next.UpdatedAt = time.Now()
	if err := s.repo.Save(next); err != nil {
		return stats, fmt.Errorf("persist recovered session: %w", err)
	}
	s.session = next
	s.publish(domain.Event{
		Kind:  domain.EventSessionInitialized,
		Phase: s.session.Phase,
		Detail: fmt.Sprintf("recovered from checkpoint: %d task(s) recreated, %d status(es) restored, %d delegation(s) merged",
			stats.TasksRecreated, stats.StatusesRestored, stats.DelegationsMerged),
		Timestamp: time.Now(),
	})
	return stats, nil
}
