package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// FileStore keeps one JSON file per entry. Writes go to a temp file in the
// same directory and are renamed into place.
type FileStore struct {
	dir string
}

func OpenFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("file cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Load(ctx context.Context, id string) (Record, error) {
	raw, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("read cache file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

func (f *FileStore) Store(ctx context.Context, id string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cache record: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(id)); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(f.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cache file: %w", err)
	}
	return nil
}

func (f *FileStore) Purge(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*"+fileExt))
	if err != nil {
		return fmt.Errorf("list cache files: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("purge cache file %s: %w", filepath.Base(m), err)
		}
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+fileExt)
}
