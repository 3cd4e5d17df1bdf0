package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Local writes media under a directory that the API serves at baseURL.
type Local struct {
	dir     string
	baseURL string
}

var _ MediaStore = (*Local)(nil)

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir is the root directory to serve.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	clean := filepath.Clean("/" + objectPath)
	full := filepath.Join(l.dir, clean)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	log.Printf("[Storage] Wrote %s (%d bytes)", clean, len(data))
	return l.baseURL + filepath.ToSlash(clean), nil
}
