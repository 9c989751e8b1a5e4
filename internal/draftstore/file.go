// Package draftstore persists the intake draft under a single fixed key.
package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mutari/pkg/types"
)

// FileStore keeps the draft as JSON in one file. The path is the key.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// DefaultFilePath is the draft location under the user's config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "mutari", "draft.json"), nil
}

func (s *FileStore) Load(_ context.Context) (*types.Draft, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft file: %w", err)
	}

	var draft = new(types.Draft)
	if err := json.Unmarshal(data, draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft file: %w", err)
	}

	return draft, nil
}

// Save writes through a temp file and rename so a crash never leaves half a draft.
func (s *FileStore) Save(_ context.Context, d *types.Draft) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create draft dir: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write draft file: %w", err)
	}

	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace draft file: %w", err)
	}

	return nil
}

func (s *FileStore) Delete(_ context.Context) error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete draft file: %w", err)
	}
	return nil
}
