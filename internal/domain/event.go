package domain

import "time"

// EventKind names a session state change for observers and the journal.
type EventKind string

const (
	EventSessionInitialized EventKind = "session_initialized"
	EventPhaseChanged       EventKind = "phase_changed"
	EventTaskAdded          EventKind = "task_added"
	EventTaskStatusChanged  EventKind = "task_status_changed"
	EventTaskReassigned     EventKind = "task_reassigned"
	EventReviewUpdated      EventKind = "review_updated"
	EventDesignSet          EventKind = "design_set"
	EventDelegationRecorded EventKind = "delegation_recorded"
	EventPreferencesSet     EventKind = "preferences_set"
	EventFileChanged        EventKind = "file_changed"
	EventSessionTorndown    EventKind = "session_torndown"
)

// Event describes exactly what changed in a single mutation. It is emitted
// after the change is durably persisted and consumed by the event log and
// the broadcaster.
type Event struct {
	Kind      EventKind `json:"kind"`
	Phase     Phase     `json:"phase,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
