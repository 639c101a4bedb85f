package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/identity"
	"github.com/sakif/vlogsite/internal/model"
	"github.com/sakif/vlogsite/internal/repository"
)

// source is what the importer reads: the flat-file store exposes every user
// through Users, which the repository contract does not.
type source interface {
	Users(ctx context.Context) ([]model.User, error)
	ListVlogs(ctx context.Context) ([]model.Vlog, error)
}

// Stats counts what one run did.
type Stats struct {
	UsersImported int
	UsersSkipped  int
	VlogsImported int
	VlogsSkipped  int
	VlogsLinked   int
}

type importer struct {
	src         source
	dst         repository.Store
	linkAuthors bool
	logger      *slog.Logger
}

// run copies users first so that -link-authors can resolve against them.
// IDs, password hashes and timestamps are kept as they are; a conflict in the
// destination means the record is already there.
func (imp *importer) run(ctx context.Context) (Stats, error) {
	var stats Stats

	users, err := imp.src.Users(ctx)
	if err != nil {
		return stats, fmt.Errorf("importer: reading users: %w", err)
	}
	for i := range users {
		u := users[i]
		err := imp.dst.CreateUser(ctx, &u)
		switch {
		case err == nil:
			stats.UsersImported++
		case errors.Is(err, apperror.ErrConflict):
			imp.logger.Debug("user already present", slog.String("email", u.Email))
			stats.UsersSkipped++
		default:
			return stats, fmt.Errorf("importer: writing user %s: %w", u.Email, err)
		}
	}

	vlogs, err := imp.src.ListVlogs(ctx)
	if err != nil {
		return stats, fmt.Errorf("importer: reading vlogs: %w", err)
	}
	for i := range vlogs {
		v := vlogs[i]
		linked := false

		if imp.linkAuthors && v.AuthorID == "" {
			id, err := identity.Resolve(ctx, imp.dst, v.Username)
			if err != nil {
				return stats, fmt.Errorf("importer: resolving %s: %w", v.Username, err)
			}
			if id.UserID != "" {
				v.AuthorID = id.UserID
				linked = true
			}
		}

		err := imp.dst.CreateVlog(ctx, &v)
		switch {
		case err == nil:
			stats.VlogsImported++
			if linked {
				stats.VlogsLinked++
			}
		case errors.Is(err, apperror.ErrConflict):
			imp.logger.Debug("vlog already present", slog.String("id", v.ID))
			stats.VlogsSkipped++
		default:
			return stats, fmt.Errorf("importer: writing vlog %s: %w", v.ID, err)
		}
	}

	return stats, nil
}
