package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// Session is a persisted engine login.
type Session struct {
	EngineURL string `json:"engineUrl"`
	User      string `json:"user"`
	TSID      string `json:"tsid"`
}

// SessionStore persists a session as JSON on disk.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store at an explicit path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// DefaultSessionStore stores the session under the user's home directory.
func DefaultSessionStore() (*SessionStore, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("engine: resolving home directory: %w", err)
	}
	return NewSessionStore(filepath.Join(home, ".farmspool", "session.json")), nil
}

// Load reads the persisted session.
func (s *SessionStore) Load() (Session, error) {
	var session Session
	data, err := os.ReadFile(s.path)
	if err != nil {
		return session, err
	}
	if err := json.Unmarshal(data, &session); err != nil {
		return session, fmt.Errorf("engine: decoding session file %s: %w", s.path, err)
	}
	return session, nil
}

// Save writes the session, creating the parent directory if needed. The file
// is user-only: it holds a live session id.
func (s *SessionStore) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
