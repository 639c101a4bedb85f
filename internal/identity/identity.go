// Package identity reconciles the identifiers callers hand us (a username or
// an email) with user records, and decides whether such a caller owns a vlog.
//
// WHY IS THIS HARD?
// Vlog records were written by several generations of the site. Depending on
// when it was created, a vlog may identify its author by:
//   - the username string supplied at upload time (always present)
//   - authorId holding the author's user id (newer records)
//   - authorId holding a raw username (one historical edge case)
//
// Rather than a nest of conditionals, ownership is an ordered list of
// strategies; the first one that matches decides, and its name is reported
// so callers can log why access was granted.
//
// KNOWN LIMITATION:
// A user who changes username loses ownership of vlogs that only carry the
// old username. Nothing links the old string to the account any more.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

// UserFinder is the slice of repository.UserRepository needed to resolve a
// caller. Accepting the narrow interface keeps tests trivial.
type UserFinder interface {
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Identity is a caller identifier after resolution. UserID is empty when no
// user record matched; ownership by plain username still works then.
type Identity struct {
	Who    string
	UserID string
}

// Resolve maps who to a user: username first, then email. A miss is not an
// error; it yields an Identity without a UserID. Storage failures propagate.
func Resolve(ctx context.Context, users UserFinder, who string) (Identity, error) {
	id := Identity{Who: who}
	if who == "" {
		return id, nil
	}

	u, err := LookupUser(ctx, users, who, who)
	switch {
	case err == nil:
		id.UserID = u.ID
	case errors.Is(err, apperror.ErrNotFound):
		// unknown caller; only the by-username strategy can still match
	default:
		return Identity{}, fmt.Errorf("identity: resolving %q: %w", who, err)
	}
	return id, nil
}

// LookupUser finds a user by username, falling back to email. Either key may
// be empty to skip that step. It returns apperror.ErrNotFound when neither
// matches.
func LookupUser(ctx context.Context, users UserFinder, username, email string) (*model.User, error) {
	if username != "" {
		u, err := users.FindUserByUsername(ctx, username)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
	}

	if email != "" {
		u, err := users.FindUserByEmail(ctx, email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
	}

	key := username
	if key == "" {
		key = email
	}
	return nil, apperror.NotFound("user", key)
}

// Strategy is one way of recognising the owner of a vlog.
type Strategy struct {
	Name  string
	Match func(v *model.Vlog, id Identity) bool
}

var (
	// ByUsername matches the username recorded at upload time. This is what
	// keeps vlogs without an authorId editable.
	ByUsername = Strategy{
		Name: "username",
		Match: func(v *model.Vlog, id Identity) bool {
			return v.Username == id.Who
		},
	}

	// ByAuthorID matches the author's user id, so a user may act through
	// either their username or their email.
	ByAuthorID = Strategy{
		Name: "author-id",
		Match: func(v *model.Vlog, id Identity) bool {
			return v.AuthorID != "" && id.UserID != "" && v.AuthorID == id.UserID
		},
	}

	// ByLegacyAuthor matches records whose authorId was stored as the raw
	// identifier string instead of a user id.
	ByLegacyAuthor = Strategy{
		Name: "legacy-author",
		Match: func(v *model.Vlog, id Identity) bool {
			return v.AuthorID != "" && v.AuthorID == id.Who
		},
	}
)

// Strategies is the evaluation order used by Owner and Owns.
var Strategies = []Strategy{ByUsername, ByAuthorID, ByLegacyAuthor}

// Owner returns the name of the first strategy under which id owns v.
// An empty caller identifier never owns anything.
func Owner(v *model.Vlog, id Identity) (string, bool) {
	if v == nil || id.Who == "" {
		return "", false
	}
	for _, s := range Strategies {
		if s.Match(v, id) {
			return s.Name, true
		}
	}
	return "", false
}

// Owns reports whether id owns v under any strategy.
func Owns(v *model.Vlog, id Identity) bool {
	_, ok := Owner(v, id)
	return ok
}

// Filter returns the vlogs owned by id, preserving order.
func Filter(vlogs []model.Vlog, id Identity) []model.Vlog {
	owned := make([]model.Vlog, 0, len(vlogs))
	for i := range vlogs {
		if Owns(&vlogs[i], id) {
			owned = append(owned, vlogs[i])
		}
	}
	return owned
}
