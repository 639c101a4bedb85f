package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/auth"
	"github.com/sakif/vlogsite/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================
// Hand-written in-memory fakes. Each keeps records in insertion order, like
// the real stores, and can be told to fail.

type fakeUserRepo struct {
	mu     sync.Mutex
	users  []*model.User
	nextID int

	findErr   error // returned by every Find*
	createErr error // returned once by CreateUser, then cleared
	updateErr error
	onCreate  func() // runs before a create is applied
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	if f.onCreate != nil {
		hook := f.onCreate
		f.onCreate = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.createErr; err != nil {
		f.createErr = nil
		return err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	f.nextID++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	copied := *u
	f.users = append(f.users, &copied)
	return nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	for i, existing := range f.users {
		if existing.ID == u.ID {
			copied := *u
			f.users[i] = &copied
			return nil
		}
	}
	return apperror.NotFound("user", u.ID)
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) FindUserByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username }, username)
}

func (f *fakeUserRepo) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeVlogRepo struct {
	mu     sync.Mutex
	vlogs  []model.Vlog
	nextID int

	listErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error
}

func newFakeVlogRepo() *fakeVlogRepo {
	return &fakeVlogRepo{}
}

func (f *fakeVlogRepo) CreateVlog(_ context.Context, v *model.Vlog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	f.nextID++
	if v.ID == "" {
		v.ID = fmt.Sprintf("vlog-%d", f.nextID)
	}
	f.vlogs = append(f.vlogs, *v)
	return nil
}

func (f *fakeVlogRepo) GetVlog(_ context.Context, id string) (*model.Vlog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, v := range f.vlogs {
		if v.ID == id {
			copied := v
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("vlog", id)
}

func (f *fakeVlogRepo) ListVlogs(_ context.Context) ([]model.Vlog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Vlog{}, f.vlogs...), nil
}

func (f *fakeVlogRepo) UpdateVlog(_ context.Context, v *model.Vlog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}

	for i := range f.vlogs {
		if f.vlogs[i].ID == v.ID {
			f.vlogs[i] = *v
			return nil
		}
	}
	return apperror.NotFound("vlog", v.ID)
}

func (f *fakeVlogRepo) DeleteVlog(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.vlogs {
		if f.vlogs[i].ID == id {
			f.vlogs = append(f.vlogs[:i], f.vlogs[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("vlog", id)
}

// fakeImageStore records saved images in memory.
type fakeImageStore struct {
	mu        sync.Mutex
	saved     map[string][]byte
	deleted   []string
	err       error
	deleteErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: make(map[string][]byte)}
}

func (f *fakeImageStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[name] = data
	return "/uploads/" + name, nil
}

func (f *fakeImageStore) Delete(_ context.Context, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, location)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.saved, strings.TrimPrefix(location, "/uploads/"))
	return nil
}

// fakeGoogle returns a fixed profile or error.
type fakeGoogle struct {
	profile *auth.GoogleProfile
	err     error
	calls   int
}

func (f *fakeGoogle) Verify(_ context.Context, _ string) (*auth.GoogleProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngImage() *Image {
	return &Image{Filename: "cover.png", Body: bytes.NewReader([]byte("\x89PNG"))}
}

// fixedNow pins the service clock.
func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 19, 54, 3, 0, time.UTC)
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}
