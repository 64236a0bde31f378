// Package files stores uploaded documents on disk. Every stored file gets a
// generated storage key so two uploads with the same name never overwrite
// each other; the user-visible filename is kept separately on the Document
// row.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips any path components and replaces characters
// outside [A-Za-z0-9._-] with underscores. An empty result becomes "file".
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	return base
}

// Store keeps uploaded files in a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// Save writes src to disk under a fresh storage key derived from filename.
// The key is "<uuid>_<sanitized-name>".
func (s *Store) Save(src io.Reader, filename string) (string, error) {
	key := uuid.NewString() + "_" + SanitizeFilename(filename)
	dst, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return key, nil
}

// Path resolves a storage key to an absolute-ish path inside the store,
// rejecting anything that would escape the directory.
func (s *Store) Path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

// Exists reports whether a stored file is present.
func (s *Store) Exists(key string) bool {
	p, err := s.Path(key)
	if err != nil {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// Remove deletes a stored file.
func (s *Store) Remove(key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	return os.Remove(p)
}
