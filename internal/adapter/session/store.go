package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/port"
)

type fileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore keeps the single resumable session in a JSON file at path.
func NewFileStore(path string, logger *zap.Logger) port.SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fileStore{path: path, logger: logger}
}

// Save replaces the session file atomically.
func (s *fileStore) Save(session *domain.AttackSession) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", domain.ErrInvalidSettings)
	}

	data, err := json.MarshalIndent(session, "", "    ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	s.logger.Debug("session saved",
		zap.String("path", s.path),
		zap.String("mode", string(session.Mode)),
		zap.String("resume_from", session.ResumeFrom))
	return nil
}

// Load returns nil without an error when the file is missing, malformed or
// describes an impossible session.
func (s *fileStore) Load() (*domain.AttackSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var session domain.AttackSession
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Debug("ignoring malformed session file", zap.String("path", s.path), zap.Error(err))
		return nil, nil
	}
	if err := session.Validate(); err != nil {
		s.logger.Debug("ignoring invalid session", zap.String("path", s.path), zap.Error(err))
		return nil, nil
	}
	return &session, nil
}

func (s *fileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Path is the location of the session file.
func Path(store port.SessionStore) string {
	if fs, ok := store.(*fileStore); ok {
		return fs.path
	}
	return ""
}
