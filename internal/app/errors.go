package app

import "errors"

// Error taxonomy for session operations. Callers test with errors.Is.
var (
	// ErrNotFound is returned when an operation references an unknown task id.
	ErrNotFound = errors.New("task not found")

	// ErrConflict is returned when task creation reuses an existing id.
	ErrConflict = errors.New("task id already exists")

	// ErrCorruptState wraps a persisted session that failed to parse. The
	// store recovers by falling back to a fresh default, but logs a warning
	// so prior work is not silently discarded.
	ErrCorruptState = errors.New("persisted session is corrupt")

	// ErrWatchUnavailable indicates the platform or permissions prevented
	// establishing a filesystem watch. The watcher degrades to partial or no
	// coverage instead of aborting.
	ErrWatchUnavailable = errors.New("filesystem watch unavailable")
)
