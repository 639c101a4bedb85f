package jsonfile

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

// CreateUser appends a user. An empty ID is filled with a fresh xid and a
// zero CreatedAt with the current time. A second account for an existing
// email is rejected with apperror.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return s.update(ctx, func(doc *document) (bool, error) {
		for i := range doc.Users {
			if doc.Users[i].Email == user.Email {
				return false, apperror.Conflict("user", user.Email)
			}
		}

		if user.ID == "" {
			user.ID = xid.New().String()
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now()
		}

		doc.Users = append(doc.Users, toRecord(user))
		return true, nil
	})
}

// UpdateUser replaces the stored record with the same ID.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	return s.update(ctx, func(doc *document) (bool, error) {
		idx := -1
		for i := range doc.Users {
			switch {
			case doc.Users[i].ID == user.ID:
				idx = i
			case doc.Users[i].Email == user.Email:
				return false, apperror.Conflict("user", user.Email)
			}
		}
		if idx < 0 {
			return false, apperror.NotFound("user", user.ID)
		}

		rec := toRecord(user)
		if rec.CreatedAt == nil {
			rec.CreatedAt = doc.Users[idx].CreatedAt
		}
		doc.Users[idx] = rec
		return true, nil
	})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id", id, func(r *userRecord) bool { return r.ID == id })
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, "username", username, func(r *userRecord) bool { return r.Username == username })
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, "email", email, func(r *userRecord) bool { return r.Email == email })
}

// Users returns every stored account in insertion order. It is not part of
// repository.UserRepository; cmd/importer uses it to walk a legacy document.
func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.view(ctx, func(doc *document) error {
		users = make([]model.User, 0, len(doc.Users))
		for i := range doc.Users {
			users = append(users, *doc.Users[i].toModel())
		}
		return nil
	})
	return users, err
}

// findUser returns the first record matching; the first is the oldest.
func (s *Store) findUser(ctx context.Context, field, value string, match func(*userRecord) bool) (*model.User, error) {
	var found *model.User
	err := s.view(ctx, func(doc *document) error {
		for i := range doc.Users {
			if match(&doc.Users[i]) {
				found = doc.Users[i].toModel()
				return nil
			}
		}
		return apperror.NotFound("user", field+" "+value)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
