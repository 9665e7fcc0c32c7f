// Package domain holds session entities and aggregate state.
// It has no dependencies on other packages.
package domain

import "time"

// Phase is the coarse lifecycle stage of a collaboration session.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDesign      Phase = "design"
	PhasePlanning    Phase = "planning"
	PhaseExecuting   Phase = "executing"
	PhaseReviewing   Phase = "reviewing"
	PhaseIntegrating Phase = "integrating"
)

// Phases returns all phases in lifecycle order.
func Phases() []Phase {
	return []Phase{PhaseIdle, PhaseDesign, PhasePlanning, PhaseExecuting, PhaseReviewing, PhaseIntegrating}
}

// ValidPhase reports whether p is one of the known phases.
func ValidPhase(p Phase) bool {
	for _, known := range Phases() {
		if p == known {
			return true
		}
	}
	return false
}

// Assignee identifies who owns a task in the human/AI split.
type Assignee string

const (
	AssigneeHuman Assignee = "human"
	AssigneeAI    Assignee = "ai"
)

// ValidAssignee reports whether a is a known assignee.
func ValidAssignee(a Assignee) bool {
	return a == AssigneeHuman || a == AssigneeAI
}

// TaskStatus is the board status of a task (todo → in_progress → review → done).
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Task is one unit of work on the board. Tasks are append-only by ID:
// once created they are mutated (status, assignee, review fields) but
// never deleted.
type Task struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Assignee     Assignee   `json:"assignee"`
	Status       TaskStatus `json:"status"`
	Files        []string   `json:"files"` // declared file ownership, relative to project root
	ReviewStatus string     `json:"review_status,omitempty"`
	ReviewNotes  string     `json:"review_notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DesignDocument is the agreed design for the session. It is replaced
// wholesale on update, never merged field by field.
type DesignDocument struct {
	TaskDescription string    `json:"task_description"`
	Narrative       string    `json:"narrative"`
	Decisions       []string  `json:"decisions"`
	Deferred        []string  `json:"deferred"`
	CreatedAt       time.Time `json:"created_at"`
}

// DelegatedWork records one unit of work handed to an automated worker.
// Multiple records may exist for the same task (retries, re-delegation);
// records are appended and never deduplicated.
type DelegatedWork struct {
	TaskID       string    `json:"task_id"`
	ExternalID   string    `json:"external_id,omitempty"`
	Status       string    `json:"status"`
	SpawnedAt    time.Time `json:"spawned_at"`
	Instructions string    `json:"instructions"`
}

// Preferences holds assignment preferences, persisted separately from the
// session file so a corrupt session cannot take them down with it.
type Preferences struct {
	DefaultAssignee       Assignee `yaml:"default_assignee" json:"default_assignee"`
	AutoCheckpoint        bool     `yaml:"auto_checkpoint" json:"auto_checkpoint"`
	ReviewBeforeIntegrate bool     `yaml:"review_before_integrate" json:"review_before_integrate"`
}

// DefaultPreferences returns the preferences used when none are persisted.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultAssignee:       AssigneeAI,
		AutoCheckpoint:        true,
		ReviewBeforeIntegrate: true,
	}
}

// Session is the root state object for one collaboration run. It is owned
// exclusively by the session store; observers receive copies or events.
type Session struct {
	Phase       Phase           `json:"phase"`
	ProjectRoot string          `json:"project_root"`
	Tasks       []Task          `json:"tasks"`
	Design      *DesignDocument `json:"design,omitempty"`
	Preferences Preferences     `json:"-"` // persisted in its own file
	Delegations []DelegatedWork `json:"delegations"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewSession returns an idle default session rooted at projectRoot.
func NewSession(projectRoot string) *Session {
	now := time.Now()
	return &Session{
		Phase:       PhaseIdle,
		ProjectRoot: projectRoot,
		Tasks:       []Task{},
		Delegations: []DelegatedWork{},
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TaskByID returns a pointer into Tasks for the given id, or nil.
func (s *Session) TaskByID(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// Checkpoint is a full point-in-time snapshot of a session, sufficient for
// a fresh process to reconstruct state from nothing. Always a full copy,
// never a diff.
type Checkpoint struct {
	Timestamp   time.Time       `json:"timestamp"`
	Phase       Phase           `json:"phase"`
	Tasks       []Task          `json:"tasks"`
	Design      *DesignDocument `json:"design,omitempty"`
	Delegations []DelegatedWork `json:"delegations"`
	Decisions   []string        `json:"decisions"`   // derived from Design
	OwnedFiles  []string        `json:"owned_files"` // deduplicated union of task ownership
	Context     string          `json:"context,omitempty"`
}

// ChangeKind distinguishes filesystem change categories.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created" // create or rename
	ChangeModified ChangeKind = "modified"
)

// FileChange is one debounced, deduplicated filesystem change notification,
// optionally resolved to the task owning the path.
type FileChange struct {
	Path      string     `json:"path"`     // absolute
	RelPath   string     `json:"rel_path"` // relative to project root
	Kind      ChangeKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	TaskID    string     `json:"task_id,omitempty"`
}
