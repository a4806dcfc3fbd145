package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSSink writes blobs below a directory.
type FSSink struct {
	dir string
}

// NewFSSink returns a sink rooted at dir. The directory is created on the
// first Put.
func NewFSSink(dir string) *FSSink {
	return &FSSink{dir: dir}
}

// Put implements Sink. Keys may contain slashes; they become directories.
func (s *FSSink) Put(ctx context.Context, key string, data []byte) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}

	path := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing report file: %w", err)
	}
	return path, nil
}
