// Package eventlog maintains an append-only per-session journal, one JSON
// record per line, used for audit and recovery context. Journal failures are
// deliberately non-fatal to the operations that trigger them.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jaakkos/loomwork/internal/domain"
)

// Source attributes a record's provenance so recovery summaries and audits
// can tell who drove an event.
type Source string

const (
	SourceSystem   Source = "system"
	SourceHuman    Source = "human"
	SourceAI       Source = "ai"
	SourceDelegate Source = "delegate"
)

// Record is one journal entry. Timestamps are assigned at append time.
type Record struct {
	Source    Source    `json:"source"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Log appends records to one file per session lifetime, named from the
// session's start time.
type Log struct {
	path   string
	logger *log.Logger
	mu     sync.Mutex
	file   *os.File
}

// Open creates (or reopens) the journal for a session started at start.
func Open(dir string, start time.Time, logger *log.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	path := filepath.Join(dir, "events-"+start.UTC().Format("20060102-150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Log{path: path, logger: logger, file: f}, nil
}

// Path returns the journal file path.
func (l *Log) Path() string { return l.path }

// Log appends one record with a server-assigned timestamp.
func (l *Log) Log(source Source, kind, content, taskID string) error {
	rec := Record{
		Source:    source,
		Kind:      kind,
		Content:   content,
		TaskID:    taskID,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode event record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("event log closed")
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append event record: %w", err)
	}
	return nil
}

// Publish implements app.EventSink: store mutations are journaled with
// system provenance. Append failures are logged, never propagated, so they
// cannot abort the mutation that produced the event.
func (l *Log) Publish(ev domain.Event) {
	if err := l.Log(SourceSystem, string(ev.Kind), ev.Detail, ev.TaskID); err != nil {
		l.logger.Printf("Warning: event log append failed: %v", err)
	}
}

// History returns the last limit records in chronological order, or all
// records when limit <= 0. Lines that fail to parse are skipped.
func (l *Log) History(limit int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan event log: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Close releases the append handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
