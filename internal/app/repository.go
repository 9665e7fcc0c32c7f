// Package app implements session use cases and defines ports (repository interfaces).
package app

import (
	"github.com/jaakkos/loomwork/internal/domain"
)

// SessionRepository loads and saves the full session state.
// Implementation: internal/repository/fsjson.
//
// Load returns os.ErrNotExist (wrapped) when no prior state is on disk and
// ErrCorruptState (wrapped) when prior state exists but cannot be parsed, so
// the store can tell the two apart. Save must be atomic at the file level:
// a crash mid-write never leaves a torn session file behind.
type SessionRepository interface {
	Load() (*domain.Session, error)
	Save(*domain.Session) error
	Delete() error
}
