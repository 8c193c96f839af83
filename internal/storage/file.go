package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/logging"
	"github.com/socialhub/client/internal/models"
)

// FileSessionStore keeps the session snapshot in a single file written
// atomically with owner-only permissions.
type FileSessionStore struct {
	path   string
	sealer *Sealer
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileSessionStore returns a store rooted at path. A nil sealer writes
// plain JSON.
func NewFileSessionStore(path string, sealer *Sealer, logger *slog.Logger) *FileSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSessionStore{path: path, sealer: sealer, logger: logger}
}

// Path returns the snapshot location.
func (s *FileSessionStore) Path() string { return s.path }

// Load reads the snapshot, returning auth.ErrNoSession when none exists.
func (s *FileSessionStore) Load(ctx context.Context) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Snapshot{}, auth.ErrNoSession
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("stat session file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logging.FromContext(logging.WithFallback(ctx, s.logger)).Warn("session file permissions are too open",
			"path", s.path,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read session file: %w", err)
	}
	snap, err := decodeSnapshot(data, s.sealer)
	if err != nil {
		return models.Snapshot{}, err
	}
	if snap.Credentials.Empty() {
		return models.Snapshot{}, auth.ErrNoSession
	}
	return snap, nil
}

// Save writes the snapshot to a temporary file, syncs it and renames it over
// the previous one.
func (s *FileSessionStore) Save(_ context.Context, snap models.Snapshot) error {
	data, err := encodeSnapshot(snap, s.sealer)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp session file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename session file: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("chmod session file: %w", err)
	}
	return nil
}

// Clear removes the snapshot. A missing file is not an error.
func (s *FileSessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
