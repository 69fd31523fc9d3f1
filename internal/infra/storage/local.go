package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

// LocalStore writes exports below a directory. With a BaseURL the returned
// location is BaseURL/key, otherwise the absolute file path.
type LocalStore struct {
	Dir     string
	BaseURL string
}

var _ report.ArtifactStore = (*LocalStore)(nil)

func NewLocal(dir, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &LocalStore{Dir: abs, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	clean := filepath.Clean("/" + key)
	path := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", key, err)
	}
	if s.BaseURL != "" {
		return s.BaseURL + filepath.ToSlash(clean), nil
	}
	return path, nil
}
