package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Load reads a collection file. A missing file yields an empty
// collection named after the file stem rather than an error, so a
// first mutation can create it lazily.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			return &Collection{Name: name}, nil
		}
		return nil, fmt.Errorf("read collection: %w", err)
	}

	var col Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", path, err)
	}
	return &col, nil
}

// Save writes a collection atomically: the JSON is staged to a temp
// file and renamed into place while a sidecar lock is held, so a
// concurrent process never observes a partial write.
func Save(path string, col Collection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create collection directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock collection %s: %w", path, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("stage collection write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace collection file: %w", err)
	}
	return nil
}

// FilePath resolves a collection name to its file inside dir.
func FilePath(dir, name string) string {
	return filepath.Join(dir, name+".json")
}
