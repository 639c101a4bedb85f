package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only while the single pooled
// connection is open. Each test gets its own, and t.Cleanup closes it.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username, email string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$fakehashfakehashfakehash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestVlog(t *testing.T, db *DB, username, title string) *model.Vlog {
	t.Helper()
	vlog := &model.Vlog{
		Username:    username,
		Title:       title,
		Description: "desc",
		Content:     "desc",
		Image:       "/uploads/x.png",
		Date:        "1/2/2026, 3:04:05 PM",
		Timestamp:   1767366245000,
	}
	if err := db.CreateVlog(context.Background(), vlog); err != nil {
		t.Fatalf("failed to create test vlog: %v", err)
	}
	return vlog
}

// =========================================================================
// USER TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "alice", "a@x.com")

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", "a@x.com")

	err := db.CreateUser(context.Background(), &model.User{Username: "other", Email: "a@x.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestFindUser_RoundTripsEveryField(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{
		Username:     "bob_smith",
		Email:        "b@x.com",
		GoogleID:     "google-sub-1",
		Name:         "Bob Smith",
		Picture:      "https://pic",
		IsGoogleAuth: true,
	}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	lookups := map[string]func() (*model.User, error){
		"by id":       func() (*model.User, error) { return db.FindUserByID(ctx, user.ID) },
		"by username": func() (*model.User, error) { return db.FindUserByUsername(ctx, "bob_smith") },
		"by email":    func() (*model.User, error) { return db.FindUserByEmail(ctx, "b@x.com") },
	}
	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			found, err := lookup()
			if err != nil {
				t.Fatalf("lookup error = %v", err)
			}
			if found.ID != user.ID {
				t.Errorf("ID = %q, want %q", found.ID, user.ID)
			}
			if found.GoogleID != "google-sub-1" || found.Name != "Bob Smith" || found.Picture != "https://pic" {
				t.Errorf("profile fields not round-tripped: %+v", found)
			}
			if !found.IsGoogleAuth {
				t.Error("IsGoogleAuth = false, want true")
			}
			if found.HasPassword() {
				t.Error("Google-only user should have no password")
			}
		})
	}
}

func TestFindUserByUsername_OldestWins(t *testing.T) {
	db := newTestDB(t)
	first := createTestUser(t, db, "sam", "sam1@x.com")
	createTestUser(t, db, "sam", "sam2@x.com")

	found, err := db.FindUserByUsername(context.Background(), "sam")
	if err != nil {
		t.Fatalf("FindUserByUsername() error = %v", err)
	}
	if found.ID != first.ID {
		t.Errorf("ID = %q, want the first account %q", found.ID, first.ID)
	}
}

func TestFindUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.FindUserByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice", "a@x.com")

	user.Name = "Alice"
	user.Picture = "https://new-pic"
	user.IsGoogleAuth = true
	if err := db.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	found, err := db.FindUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindUserByID() error = %v", err)
	}
	if found.Name != "Alice" || found.Picture != "https://new-pic" || !found.IsGoogleAuth {
		t.Errorf("update not persisted: %+v", found)
	}
	if !found.HasPassword() {
		t.Error("UpdateUser() should keep the password hash")
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUser(context.Background(), &model.User{ID: "missing", Email: "m@x.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// VLOG TESTS
// =========================================================================

func TestCreateAndGetVlog(t *testing.T) {
	db := newTestDB(t)
	created := createTestVlog(t, db, "alice", "T")

	found, err := db.GetVlog(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetVlog() error = %v", err)
	}
	if *found != *created {
		t.Errorf("GetVlog() = %+v, want %+v", found, created)
	}
}

func TestGetVlog_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetVlog(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetVlog() error = %v, want ErrNotFound", err)
	}
}

func TestListVlogs_Empty(t *testing.T) {
	db := newTestDB(t)

	vlogs, err := db.ListVlogs(context.Background())
	if err != nil {
		t.Fatalf("ListVlogs() error = %v", err)
	}
	if vlogs == nil || len(vlogs) != 0 {
		t.Errorf("ListVlogs() = %v, want empty non-nil slice", vlogs)
	}
}

func TestListVlogs_InsertionOrder(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		createTestVlog(t, db, "alice", fmt.Sprintf("v%d", i))
	}

	vlogs, err := db.ListVlogs(context.Background())
	if err != nil {
		t.Fatalf("ListVlogs() error = %v", err)
	}
	if len(vlogs) != 5 {
		t.Fatalf("ListVlogs() returned %d vlogs, want 5", len(vlogs))
	}
	for i, v := range vlogs {
		if want := fmt.Sprintf("v%d", i); v.Title != want {
			t.Errorf("vlogs[%d].Title = %q, want %q", i, v.Title, want)
		}
	}
}

func TestUpdateVlog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	vlog := createTestVlog(t, db, "alice", "before")

	vlog.Title = "after"
	vlog.Image = "/uploads/new.png"
	if err := db.UpdateVlog(ctx, vlog); err != nil {
		t.Fatalf("UpdateVlog() error = %v", err)
	}

	found, err := db.GetVlog(ctx, vlog.ID)
	if err != nil {
		t.Fatalf("GetVlog() error = %v", err)
	}
	if found.Title != "after" || found.Image != "/uploads/new.png" {
		t.Errorf("update not persisted: %+v", found)
	}
}

func TestUpdateVlog_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateVlog(context.Background(), &model.Vlog{ID: "missing", Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateVlog() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteVlog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	vlog := createTestVlog(t, db, "alice", "doomed")

	if err := db.DeleteVlog(ctx, vlog.ID); err != nil {
		t.Fatalf("DeleteVlog() error = %v", err)
	}
	if _, err := db.GetVlog(ctx, vlog.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetVlog() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteVlog(ctx, vlog.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteVlog() error = %v, want ErrNotFound", err)
	}
}
