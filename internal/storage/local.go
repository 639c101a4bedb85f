package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/moby/sys/atomicwriter"
)

// LocalStore writes images into a directory served by the HTTP server.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates dir if needed. urlPrefix is the path the directory
// is mounted at, e.g. "/uploads".
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: creating %s: %w", dir, err)
	}
	prefix := "/" + strings.Trim(urlPrefix, "/")
	return &LocalStore{dir: dir, urlPrefix: prefix}, nil
}

// Dir returns the directory images are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Save streams r into dir/name. The file only appears once fully written.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "", fmt.Errorf("local storage: empty name")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, base)
	w, err := atomicwriter.New(dst, 0o644)
	if err != nil {
		return "", fmt.Errorf("local storage: opening %s: %w", base, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		// the writer only tracks its own write errors, so a failed read
		// still renames into place on Close
		w.Close()
		os.Remove(dst)
		return "", fmt.Errorf("local storage: writing %s: %w", base, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("local storage: committing %s: %w", base, err)
	}

	return path.Join(s.urlPrefix, base), nil
}

// Delete removes the file behind location. Locations outside urlPrefix were
// not written by this store and are refused.
func (s *LocalStore) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rest, ok := strings.CutPrefix(path.Clean(location), s.urlPrefix+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return fmt.Errorf("local storage: %q is not an upload location", location)
	}

	if err := os.Remove(filepath.Join(s.dir, rest)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local storage: removing %s: %w", rest, err)
	}
	return nil
}
