// Package jsonfile implements the repository interfaces on top of a single
// JSON document holding every user and every vlog:
//
//	{"users": [...], "vlogs": [...]}
//
// The file format is compatible with the data.json written by earlier
// versions of the site, so an existing file can be pointed at directly.
//
// READ-MODIFY-WRITE:
// Every operation loads the whole document, and every mutation writes the
// whole document back. Two things keep concurrent requests from losing each
// other's writes:
//   - a sync.Mutex serialises callers inside this process
//   - an advisory lock on "<path>.lock" (gofrs/flock) serialises processes
//     that share the file, e.g. the server and cmd/importer
//
// Writes go through moby/sys/atomicwriter: the new document is written to a
// temp file and renamed over the old one, so a crash mid-write never leaves a
// truncated document behind.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/moby/sys/atomicwriter"

	"github.com/sakif/vlogsite/internal/model"
	"github.com/sakif/vlogsite/internal/repository"
)

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// lockRetryDelay is how often a blocked caller re-tries the file lock.
const lockRetryDelay = 10 * time.Millisecond

// document is the on-disk shape.
type document struct {
	Users []userRecord `json:"users"`
	Vlogs []model.Vlog `json:"vlogs"`
}

// userRecord mirrors model.User but keeps the password field that the API
// model hides. Password is null for Google-only accounts, a bcrypt hash for
// accounts created by this version, and possibly plaintext in old files.
type userRecord struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Password     *string    `json:"password"`
	GoogleID     string     `json:"googleId,omitempty"`
	Name         string     `json:"name,omitempty"`
	Picture      string     `json:"picture,omitempty"`
	IsGoogleAuth bool       `json:"isGoogleAuth,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Store is a flat-file repository.Store.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// Open prepares the document at path, creating it (and its directory) with
// empty collections if it does not exist yet.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile: creating directory %s: %w", dir, err)
		}
	}

	s := &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}

	err := s.update(context.Background(), func(*document) (bool, error) {
		// load() already substitutes an empty document for a missing file;
		// returning true persists it so the file exists from now on.
		_, statErr := os.Stat(path)
		return errors.Is(statErr, os.ErrNotExist), nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Close releases the lock file handle.
func (s *Store) Close() error {
	return s.lock.Close()
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// view runs fn against a freshly loaded document under a shared file lock.
func (s *Store) view(ctx context.Context, fn func(doc *document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("jsonfile: acquiring read lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("jsonfile: read lock not acquired")
	}
	defer s.lock.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn against a freshly loaded document under an exclusive file
// lock and writes the document back when fn reports a change.
func (s *Store) update(ctx context.Context, fn func(doc *document) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("jsonfile: acquiring write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("jsonfile: write lock not acquired")
	}
	defer s.lock.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}

	return s.save(doc)
}

func (s *Store) load() (*document, error) {
	doc := &document{}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// treated as empty
	case err != nil:
		return nil, fmt.Errorf("jsonfile: reading %s: %w", s.path, err)
	case len(data) > 0:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("jsonfile: decoding %s: %w", s.path, err)
		}
	}

	if doc.Users == nil {
		doc.Users = []userRecord{}
	}
	if doc.Vlogs == nil {
		doc.Vlogs = []model.Vlog{}
	}
	return doc, nil
}

func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encoding document: %w", err)
	}
	if err := atomicwriter.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("jsonfile: writing %s: %w", s.path, err)
	}
	return nil
}

func toRecord(u *model.User) userRecord {
	rec := userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		GoogleID:     u.GoogleID,
		Name:         u.Name,
		Picture:      u.Picture,
		IsGoogleAuth: u.IsGoogleAuth,
	}
	if u.PasswordHash != "" {
		hash := u.PasswordHash
		rec.Password = &hash
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		rec.CreatedAt = &created
	}
	return rec
}

func (r *userRecord) toModel() *model.User {
	u := &model.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		GoogleID:     r.GoogleID,
		Name:         r.Name,
		Picture:      r.Picture,
		IsGoogleAuth: r.IsGoogleAuth,
	}
	if r.Password != nil {
		u.PasswordHash = *r.Password
	}
	if r.CreatedAt != nil {
		u.CreatedAt = *r.CreatedAt
	}
	return u
}
