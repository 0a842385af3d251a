package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"workshop-onboarding/internal/models"
)

// TokenStore persists the login between CLI invocations.
type TokenStore interface {
	Load() (*models.StoredSession, error)
	Save(session models.StoredSession) error
	Clear() error
}

// FileTokenStore keeps the session as a 0600 JSON file.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Path() string {
	return f.path
}

// Load returns nil without error when nothing is stored.
func (f *FileTokenStore) Load() (*models.StoredSession, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var stored models.StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if stored.Token == "" {
		return nil, nil
	}
	return &stored, nil
}

func (f *FileTokenStore) Save(session models.StoredSession) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
