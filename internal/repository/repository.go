package repository

import (
	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/repository/fsjson"
)

// NewSessionRepository returns a SessionRepository backed by JSON files under
// the given state directory (typically policy.StateDir(), default
// <project>/.loomwork).
func NewSessionRepository(dir string) (app.SessionRepository, error) {
	return fsjson.New(dir)
}
