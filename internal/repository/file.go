package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names used by FileStore, matching the plugin's data directory layout.
const (
	ScoresFile    = "scores.json"
	UsernamesFile = "usernames.json"
)

// FileStore keeps each map in its own JSON document inside a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadScores reads scores.json.
func (s *FileStore) LoadScores(_ context.Context) (map[string]int64, error) {
	scores := make(map[string]int64)
	if err := s.read(ScoresFile, &scores); err != nil {
		return make(map[string]int64), err
	}
	return scores, nil
}

// SaveScores replaces scores.json.
func (s *FileStore) SaveScores(_ context.Context, scores map[string]int64) error {
	return s.write(ScoresFile, scores)
}

// LoadNames reads usernames.json.
func (s *FileStore) LoadNames(_ context.Context) (map[string]string, error) {
	names := make(map[string]string)
	if err := s.read(UsernamesFile, &names); err != nil {
		return make(map[string]string), err
	}
	return names, nil
}

// SaveNames replaces usernames.json.
func (s *FileStore) SaveNames(_ context.Context, names map[string]string) error {
	return s.write(UsernamesFile, names)
}

// Close is a no-op for files.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// write goes through a temp file in the same directory so a crash never
// leaves a half-written document behind.
func (s *FileStore) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
