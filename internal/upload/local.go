package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes uploads below Dir and serves them from URLPrefix.
// A key "uploads/123.png" lands at Dir/123.png and is served as /uploads/123.png.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir, URLPrefix: "/uploads"}
}

// Put implements Store. The file is written to a temp name and renamed so a
// failed write never leaves a servable partial file.
func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	name := strings.TrimPrefix(path.Clean("/"+key), "/"+KeyPrefix)
	if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid upload key %q", key)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return "", fmt.Errorf("rename upload: %w", err)
	}

	return strings.TrimRight(s.URLPrefix, "/") + "/" + name, nil
}
