package checkpoint

import (
	"github.com/jaakkos/loomwork/internal/domain"
)

// MergeStats summarizes what a checkpoint merge changed.
type MergeStats struct {
	TasksRecreated     int
	StatusesRestored   int
	DelegationsMerged  int
	DelegationsSkipped int
}

// Merge applies a checkpoint to a live session in place. The policy is
// deliberately asymmetric:
//
//   - phase is restored verbatim from the checkpoint;
//   - tasks present in the checkpoint but absent locally are recreated;
//   - tasks present in both get their status overwritten from the
//     checkpoint, but NOT their assignee or description; local edits made
//     after the checkpoint was taken must not be clobbered;
//   - delegated-work records are merged by (task id, spawn timestamp),
//     skipping records already present.
//
// The design document is only adopted when the session has none.
func Merge(session *domain.Session, cp *domain.Checkpoint) MergeStats {
	var stats MergeStats
	if session == nil || cp == nil {
		return stats
	}

	session.Phase = cp.Phase

	for _, cpTask := range cp.Tasks {
		if local := session.TaskByID(cpTask.ID); local != nil {
			if local.Status != cpTask.Status {
				local.Status = cpTask.Status
				stats.StatusesRestored++
			}
			continue
		}
		t := cpTask
		t.Files = append([]string(nil), cpTask.Files...)
		session.Tasks = append(session.Tasks, t)
		stats.TasksRecreated++
	}

	type delegationKey struct {
		taskID  string
		spawned int64
	}
	present := make(map[delegationKey]bool, len(session.Delegations))
	for _, d := range session.Delegations {
		present[delegationKey{d.TaskID, d.SpawnedAt.UnixNano()}] = true
	}
	for _, d := range cp.Delegations {
		key := delegationKey{d.TaskID, d.SpawnedAt.UnixNano()}
		if present[key] {
			stats.DelegationsSkipped++
			continue
		}
		session.Delegations = append(session.Delegations, d)
		present[key] = true
		stats.DelegationsMerged++
	}

	if session.Design == nil && cp.Design != nil {
		session.Design = cp.Design.Clone()
	}

	return stats
}
