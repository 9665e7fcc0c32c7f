package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jaakkos/loomwork/internal/domain"
)

// EventSink consumes session change events. Implementations must not block;
// the store calls sinks synchronously after each durable write.
type EventSink interface {
	Publish(domain.Event)
}

// CheckpointWriter is implemented by checkpoint.Manager. The store calls it
// after phase transitions and task completions; failures are logged and
// never abort the triggering mutation.
type CheckpointWriter interface {
	WriteCheckpoint(session *domain.Session, context string) (string, error)
}

// LoadOutcome distinguishes how Initialize obtained its session, so logs
// and tests can tell a fresh start from a corrupt-state recovery.
type LoadOutcome int

const (
	LoadedExisting LoadOutcome = iota
	StartedFresh
	RecoveredCorrupt
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadedExisting:
		return "loaded existing state"
	case StartedFresh:
		return "no prior state, started fresh"
	case RecoveredCorrupt:
		return "prior state corrupt, started fresh"
	default:
		return "unknown"
	}
}

// SessionStore is the single authoritative holder of one session. It is an
// explicit handle owned by the caller, not an ambient global, so multiple
// sessions can coexist in one process, each with its own store.
//
// Single-writer model: one controlling process drives all mutations. Every
// mutating call durably rewrites the full session before returning
// (commit-before-acknowledge); a successful return is a durability
// guarantee. Concurrent external edits to the persisted file are undefined.
type SessionStore struct {
	repo   SessionRepository
	logger *log.Logger

	mu      sync.Mutex
	session *domain.Session

	sinks        []EventSink
	checkpointer CheckpointWriter // optional; nil disables auto-checkpoints
}

// NewSessionStore returns a store bound to repo. Call Initialize before any
// other operation.
func NewSessionStore(repo SessionRepository, logger *log.Logger) *SessionStore {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &SessionStore{repo: repo, logger: logger}
}

// AddSink attaches an event consumer (event log, broadcaster). Sinks attached
// after Initialize miss the session_initialized event.
func (s *SessionStore) AddSink(sink EventSink) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

// SetCheckpointer attaches the checkpoint writer used for automatic
// snapshots on phase transitions and task completions.
func (s *SessionStore) SetCheckpointer(cw CheckpointWriter) {
	s.mu.Lock()
	s.checkpointer = cw
	s.mu.Unlock()
}

// Initialize loads persisted state or creates a default idle session rooted
// at projectRoot. A corrupt persisted session never fails initialization:
// the store logs a warning, leaves the corrupt file in place for inspection,
// and proceeds with a fresh default that overwrites it on the next mutation.
func (s *SessionStore) Initialize(projectRoot string) (LoadOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := LoadedExisting
	session, err := s.repo.Load()
	switch {
	case err == nil:
		if session.ProjectRoot == "" {
			session.ProjectRoot = projectRoot
		}
	case errors.Is(err, os.ErrNotExist):
		outcome = StartedFresh
		session = domain.NewSession(projectRoot)
		if err := s.repo.Save(session); err != nil {
			return outcome, fmt.Errorf("persist initial session: %w", err)
		}
	case errors.Is(err, ErrCorruptState):
		s.logger.Printf("Warning: %v; starting a fresh session, prior file left on disk", err)
		outcome = RecoveredCorrupt
		session = domain.NewSession(projectRoot)
	default:
		return outcome, fmt.Errorf("load session: %w", err)
	}

	s.session = session
	s.publish(domain.Event{
		Kind:      domain.EventSessionInitialized,
		Phase:     session.Phase,
		Detail:    outcome.String(),
		Timestamp: time.Now(),
	})
	return outcome, nil
}

// mutate clones the live session, applies fn to the clone, persists the
// clone, and only after a successful write swaps it in and emits ev. The
// swap-last ordering means a failed validation or a failed Save leaves the
// live session and its observers exactly as they were; no state becomes
// visible that was never durably written and announced.
func (s *SessionStore) mutate(ev domain.Event, fn func(*domain.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return fmt.Errorf("session store not initialized")
	}
	next := s.session.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = time.Now()
	if err := s.repo.Save(next); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.session = next
	ev.Timestamp = time.Now()
	s.publish(ev)
	return nil
}

// publish delivers ev to all sinks. Caller holds s.mu.
func (s *SessionStore) publish(ev domain.Event) {
	for _, sink := range s.sinks {
		sink.Publish(ev)
	}
}

// SetPhase performs an unconditional phase transition. Moving to an earlier
// phase is deliberately allowed: the workflow may loop back to design.
func (s *SessionStore) SetPhase(phase domain.Phase) error {
	if !domain.ValidPhase(phase) {
		return fmt.Errorf("unknown phase %q", phase)
	}
	err := s.mutate(domain.Event{
		Kind:   domain.EventPhaseChanged,
		Phase:  phase,
		Detail: string(phase),
	}, func(sess *domain.Session) error {
		sess.Phase = phase
		return nil
	})
	if err != nil {
		return err
	}
	s.autoCheckpoint("phase changed to " + string(phase))
	return nil
}

// AddTask creates a task on the board. A duplicate id fails with ErrConflict;
// ids are unique and immutable once assigned.
func (s *SessionStore) AddTask(id, description string, assignee domain.Assignee, files []string) error {
	if id == "" {
		return fmt.Errorf("task id is required")
	}
	return s.mutate(domain.Event{
		Kind:   domain.EventTaskAdded,
		TaskID: id,
		Detail: description,
	}, func(sess *domain.Session) error {
		if sess.TaskByID(id) != nil {
			return fmt.Errorf("task %q: %w", id, ErrConflict)
		}
		if assignee == "" {
			assignee = sess.Preferences.DefaultAssignee
		}
		if !domain.ValidAssignee(assignee) {
			return fmt.Errorf("unknown assignee %q", assignee)
		}
		now := time.Now()
		sess.Tasks = append(sess.Tasks, domain.Task{
			ID:          id,
			Description: description,
			Assignee:    assignee,
			Status:      domain.StatusTodo,
			Files:       append([]string(nil), files...),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return nil
	})
}

// UpdateTaskStatus moves a task to a new board status. Completing a task
// triggers an automatic checkpoint.
func (s *SessionStore) UpdateTaskStatus(id string, status domain.TaskStatus) error {
	err := s.mutate(domain.Event{
		Kind:   domain.EventTaskStatusChanged,
		TaskID: id,
		Detail: string(status),
	}, func(sess *domain.Session) error {
		if !domain.ValidStatus(status) {
			return fmt.Errorf("unknown status %q", status)
		}
		task := sess.TaskByID(id)
		if task == nil {
			return fmt.Errorf("task %q: %w", id, ErrNotFound)
		}
		task.Status = status
		task.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}
	if status == domain.StatusDone {
		s.autoCheckpoint("task " + id + " done")
	}
	return nil
}

// ReassignTask hands a task to a different owner.
func (s *SessionStore) ReassignTask(id string, assignee domain.Assignee) error {
	return s.mutate(domain.Event{
		Kind:   domain.EventTaskReassigned,
		TaskID: id,
		Detail: string(assignee),
	}, func(sess *domain.Session) error {
		if !domain.ValidAssignee(assignee) {
			return fmt.Errorf("unknown assignee %q", assignee)
		}
		task := sess.TaskByID(id)
		if task == nil {
			return fmt.Errorf("task %q: %w", id, ErrNotFound)
		}
		task.Assignee = assignee
		task.UpdatedAt = time.Now()
		return nil
	})
}

// SetReviewStatus records a review verdict and notes on a task.
func (s *SessionStore) SetReviewStatus(id, reviewStatus, notes string) error {
	return s.mutate(domain.Event{
		Kind:   domain.EventReviewUpdated,
		TaskID: id,
		Detail: reviewStatus,
	}, func(sess *domain.Session) error {
		task := sess.TaskByID(id)
		if task == nil {
			return fmt.Errorf("task %q: %w", id, ErrNotFound)
		}
		task.ReviewStatus = reviewStatus
		task.ReviewNotes = notes
		task.UpdatedAt = time.Now()
		return nil
	})
}

// SetDesign replaces the design document wholesale.
func (s *SessionStore) SetDesign(doc domain.DesignDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	return s.mutate(domain.Event{
		Kind:   domain.EventDesignSet,
		Detail: doc.TaskDescription,
	}, func(sess *domain.Session) error {
		sess.Design = doc.Clone()
		return nil
	})
}

// AddDelegatedWork appends a delegated-work record. Records are never
// deduplicated; retries for the same task produce additional entries.
func (s *SessionStore) AddDelegatedWork(rec domain.DelegatedWork) error {
	if rec.SpawnedAt.IsZero() {
		rec.SpawnedAt = time.Now()
	}
	return s.mutate(domain.Event{
		Kind:   domain.EventDelegationRecorded,
		TaskID: rec.TaskID,
		Detail: rec.Status,
	}, func(sess *domain.Session) error {
		sess.Delegations = append(sess.Delegations, rec)
		return nil
	})
}

// SetPreferences replaces the assignment preferences.
func (s *SessionStore) SetPreferences(p domain.Preferences) error {
	return s.mutate(domain.Event{
		Kind: domain.EventPreferencesSet,
	}, func(sess *domain.Session) error {
		sess.Preferences = p
		return nil
	})
}

// Snapshot returns a deep copy of the current session for read-only
// consumers (dashboard, checkpoint writer, task resolution).
func (s *SessionStore) Snapshot() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Teardown ends the session, optionally deleting its on-disk state.
func (s *SessionStore) Teardown(deleteState bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	if deleteState {
		if err := s.repo.Delete(); err != nil {
			return fmt.Errorf("delete session state: %w", err)
		}
	}
	s.publish(domain.Event{Kind: domain.EventSessionTorndown, Timestamp: time.Now()})
	s.session = nil
	return nil
}

// autoCheckpoint writes a snapshot through the attached checkpointer.
// Checkpoint failures are non-fatal: the triggering mutation has already
// committed, so failures are only logged.
func (s *SessionStore) autoCheckpoint(context string) {
	s.mu.Lock()
	cw := s.checkpointer
	var snap *domain.Session
	if cw != nil && s.session != nil && s.session.Preferences.AutoCheckpoint {
		snap = s.session.Clone()
	}
	s.mu.Unlock()

	if snap == nil {
		return
	}
	if name, err := cw.WriteCheckpoint(snap, context); err != nil {
		s.logger.Printf("Warning: checkpoint failed (%s): %v", context, err)
	} else {
		s.logger.Printf("Checkpoint written: %s (%s)", name, context)
	}
}
