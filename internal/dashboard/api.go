// Package dashboard provides a web dashboard and JSON API for observing a
// loomwork session in real time. It reads snapshots from the session store
// and streams live events from the broadcaster; it never mutates state.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jaakkos/loomwork/internal/app"
)

// StateSnapshot is the JSON response from /api/state.
type StateSnapshot struct {
	Timestamp   string               `json:"timestamp"`
	ProjectRoot string               `json:"project_root"`
	Phase       string               `json:"phase"`
	Tasks       []TaskSnapshot       `json:"tasks"`
	Design      *DesignSnapshot      `json:"design,omitempty"`
	Delegations []DelegationSnapshot `json:"delegations,omitempty"`
	Events      []EventSnapshot      `json:"events,omitempty"`
}

// TaskSnapshot is a per-task summary.
type TaskSnapshot struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Assignee     string   `json:"assignee"`
	Status       string   `json:"status"`
	Files        []string `json:"files,omitempty"`
	ReviewStatus string   `json:"review_status,omitempty"`
	Age          string   `json:"age"`
}

// DesignSnapshot is the design-document summary.
type DesignSnapshot struct {
	TaskDescription string   `json:"task_description"`
	Narrative       string   `json:"narrative"`
	Decisions       []string `json:"decisions,omitempty"`
	Deferred        []string `json:"deferred,omitempty"`
	Age             string   `json:"age"`
}

// DelegationSnapshot is a per-delegation summary.
type DelegationSnapshot struct {
	TaskID     string `json:"task_id"`
	ExternalID string `json:"external_id,omitempty"`
	Status     string `json:"status"`
	Age        string `json:"age"`
}

// EventSnapshot is one recent broadcast event.
type EventSnapshot struct {
	Kind   string `json:"kind"`
	TaskID string `json:"task_id,omitempty"`
	Detail string `json:"detail,omitempty"`
	Age    string `json:"age"`
}

// Handler holds dependencies for dashboard HTTP handlers.
type Handler struct {
	store       *app.SessionStore
	broadcaster *app.Broadcaster
}

// NewHandler creates a dashboard handler.
func NewHandler(store *app.SessionStore, broadcaster *app.Broadcaster) *Handler {
	return &Handler{store: store, broadcaster: broadcaster}
}

// RegisterRoutes adds dashboard routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleAPIState)
	mux.HandleFunc("/api/events", h.handleAPIEvents)
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/dashboard/", h.handleDashboard)
}

func (h *Handler) handleAPIState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")

	now := time.Now()
	snap := StateSnapshot{Timestamp: now.Format(time.RFC3339)}

	session := h.store.Snapshot()
	if session != nil {
		snap.ProjectRoot = session.ProjectRoot
		snap.Phase = string(session.Phase)
		for _, t := range session.Tasks {
			snap.Tasks = append(snap.Tasks, TaskSnapshot{
				ID:           t.ID,
				Description:  truncate(t.Description, 120),
				Assignee:     string(t.Assignee),
				Status:       string(t.Status),
				Files:        t.Files,
				ReviewStatus: t.ReviewStatus,
				Age:          relTime(t.CreatedAt, now),
			})
		}
		if d := session.Design; d != nil {
			snap.Design = &DesignSnapshot{
				TaskDescription: d.TaskDescription,
				Narrative:       truncate(d.Narrative, 400),
				Decisions:       d.Decisions,
				Deferred:        d.Deferred,
				Age:             relTime(d.CreatedAt, now),
			}
		}
		for _, del := range session.Delegations {
			snap.Delegations = append(snap.Delegations, DelegationSnapshot{
				TaskID:     del.TaskID,
				ExternalID: del.ExternalID,
				Status:     del.Status,
				Age:        relTime(del.SpawnedAt, now),
			})
		}
	}

	for _, ev := range h.broadcaster.Recent(30) {
		snap.Events = append(snap.Events, EventSnapshot{
			Kind:   string(ev.Kind),
			TaskID: ev.TaskID,
			Detail: truncate(ev.Detail, 120),
			Age:    relTime(ev.Timestamp, now),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(snap)
}

// handleAPIEvents streams live session events over SSE. The subscription is
// dropped by the broadcaster if this client falls behind.
func (h *Handler) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	events, cancel := h.broadcaster.Subscribe(32)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				// Dropped for falling behind.
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func relTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
