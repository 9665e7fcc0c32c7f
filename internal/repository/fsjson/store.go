// Package fsjson persists the session as JSON files under a project-scoped
// state directory. The session file is rewritten wholesale on every mutation
// through a temp-file + rename so a crash mid-write never leaves a torn file.
// Preferences live in their own YAML file: a corrupt session file cannot take
// the preferences down with it.
package fsjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/domain"
)

const (
	sessionFile     = "session.json"
	preferencesFile = "preferences.yaml"
	designFile      = "design.md"
)

// Store implements app.SessionRepository on top of plain files.
type Store struct {
	dir string
}

// New creates the state directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory the store writes under.
func (s *Store) Dir() string { return s.dir }

// SessionPath returns the path of the primary session file.
func (s *Store) SessionPath() string { return filepath.Join(s.dir, sessionFile) }

// Load implements app.SessionRepository. Missing state surfaces as
// os.ErrNotExist; unparsable state surfaces as app.ErrCorruptState so the
// caller can distinguish "no prior state" from "corrupt prior state".
func (s *Store) Load() (*domain.Session, error) {
	data, err := os.ReadFile(s.SessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session file: %w", os.ErrNotExist)
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrCorruptState, err)
	}

	// Backfill fields missing from older persisted schemas.
	if session.Phase == "" {
		session.Phase = domain.PhaseIdle
	}
	if session.Tasks == nil {
		session.Tasks = []domain.Task{}
	}
	if session.Delegations == nil {
		session.Delegations = []domain.DelegatedWork{}
	}
	session.Preferences = s.loadPreferences()

	return &session, nil
}

// loadPreferences reads the separate preferences file. Missing or unparsable
// preferences fall back to defaults; they are deliberately isolated from
// the session file's fate.
func (s *Store) loadPreferences() domain.Preferences {
	prefs := domain.DefaultPreferences()
	data, err := os.ReadFile(filepath.Join(s.dir, preferencesFile))
	if err != nil {
		return prefs
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return domain.DefaultPreferences()
	}
	return prefs
}

// Save implements app.SessionRepository. It rewrites the session file, the
// preferences file, and (when a design exists) the human-readable design
// rendering, each atomically.
func (s *Store) Save(session *domain.Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := writeAtomic(s.SessionPath(), data); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	prefs, err := yaml.Marshal(session.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, preferencesFile), prefs); err != nil {
		return fmt.Errorf("write preferences file: %w", err)
	}

	if session.Design != nil {
		if err := writeAtomic(filepath.Join(s.dir, designFile), renderDesign(session.Design)); err != nil {
			return fmt.Errorf("write design rendering: %w", err)
		}
	}
	return nil
}

// Delete removes the persisted session state. Missing files are not errors.
func (s *Store) Delete() error {
	for _, name := range []string{sessionFile, preferencesFile, designFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// writeAtomic writes data to a temp file in the target's directory and
// renames it over the target.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
