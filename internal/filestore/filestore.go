// Package filestore stores raw receipt files on local disk. The rest of
// the system only sees opaque references, so a bucket-backed store can be
// swapped in later.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/receiptorhq/receiptor/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Store struct {
	dir string
	log *zap.Logger
}

var Module = fx.Module("filestore",
	fx.Provide(New),
)

func New(cfg config.Config, log *zap.Logger) (*Store, error) {
	dir := strings.TrimSpace(cfg.UploadDir)
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, log: log.Named("filestore")}, nil
}

// Save writes data under an id-prefixed sanitized filename and returns the
// opaque reference recorded on the receipt.
func (s *Store) Save(id, filename string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

// Load reads back the bytes behind a reference returned by Save.
func (s *Store) Load(ref string) ([]byte, error) {
	path := filepath.Join(s.dir, filepath.Base(strings.TrimSpace(ref)))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Remove deletes a stored file. A missing file is not an error; the
// reference may already be gone.
func (s *Store) Remove(ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}
	path := filepath.Join(s.dir, filepath.Base(ref))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove stored file", zap.String("ref", ref), zap.Error(err))
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename drops any path components first, then strips unsafe
// characters from what remains of the base name.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}
