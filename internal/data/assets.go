package data

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// AssetStore is the filesystem-backed media store. Every downloaded
// attachment lives here until its post reaches a terminal state or the
// janitor reclaims it.
type AssetStore struct {
	dir string
}

// NewAssetStore creates the store directory if needed
func NewAssetStore(dir string) (*AssetStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &AssetStore{dir: dir}, nil
}

// Dir returns the store directory
func (s *AssetStore) Dir() string {
	return s.dir
}

// Save writes one asset file and returns its path
func (s *AssetStore) Save(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}
	return path, nil
}

// Exists reports whether the asset file is still present
func (s *AssetStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes one asset file. A file already gone is not an error:
// terminal paths and the janitor may race on the same asset.
func (s *AssetStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SweepOlderThan deletes asset files last modified before the given time,
// regardless of queue membership. Returns files removed and bytes
// reclaimed.
func (s *AssetStore) SweepOlderThan(before time.Time) (int, int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read media directory: %w", err)
	}

	files := 0
	var bytes int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(before) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("[Assets] Failed to remove orphan", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		files++
		bytes += info.Size()
	}
	return files, bytes, nil
}
