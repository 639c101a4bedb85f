// Package service contains the business rules of the site.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, authorizes, orchestrates
//	Repository (data layer)  → reads/writes the store
//
// Services accept plain Go values and return apperror values, never HTTP
// types, so the same rules serve the HTTP handlers and cmd/importer alike.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/identity"
	"github.com/sakif/vlogsite/internal/model"
	"github.com/sakif/vlogsite/internal/repository"
	"github.com/sakif/vlogsite/internal/storage"
)

// Validation limits, in characters.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxContentLength     = 100000
)

// Image is an uploaded file as the service sees it: the client's filename
// (only its extension matters) and the bytes.
type Image struct {
	Filename string
	Body     io.Reader
}

// CreateVlogInput carries the fields of a new vlog.
type CreateVlogInput struct {
	Username    string
	Title       string
	Description string
	Content     string // defaults to Description
	Image       *Image
}

// UpdateVlogInput carries a partial update; empty fields are left alone.
type UpdateVlogInput struct {
	ID          string
	Username    string // the caller, checked against ownership
	Title       string
	Description string
	Content     string
	Image       *Image
}

// VlogService implements vlog CRUD with ownership checks.
type VlogService struct {
	vlogs  repository.VlogRepository
	users  identity.UserFinder
	images storage.ImageStore
	logger *slog.Logger
	now    func() time.Time
}

// NewVlogService wires a VlogService.
func NewVlogService(
	vlogs repository.VlogRepository,
	users identity.UserFinder,
	images storage.ImageStore,
	logger *slog.Logger,
) *VlogService {
	return &VlogService{
		vlogs:  vlogs,
		users:  users,
		images: images,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates and stores a new vlog.
//
// authorId is set to whichever user username (or email) resolves to right
// now; with no match the vlog is owned by the username string alone.
func (s *VlogService) Create(ctx context.Context, in CreateVlogInput) (*model.Vlog, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Username == "":
		return nil, apperror.ValidationFailed("username", "username is required")
	case in.Title == "":
		return nil, apperror.ValidationFailed("title", "title is required")
	case in.Description == "":
		return nil, apperror.ValidationFailed("description", "description is required")
	case in.Image == nil:
		return nil, apperror.ValidationFailed("image", "image is required")
	}
	if in.Content == "" {
		in.Content = in.Description
	}
	if err := validateLengths(in.Title, in.Description, in.Content); err != nil {
		return nil, err
	}

	who, err := identity.Resolve(ctx, s.users, in.Username)
	if err != nil {
		return nil, fmt.Errorf("service/vlog: creating: %w", err)
	}

	location, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	vlog := &model.Vlog{
		Username:    in.Username,
		AuthorID:    who.UserID,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Image:       location,
	}
	vlog.Touch(s.now())

	if err := s.vlogs.CreateVlog(ctx, vlog); err != nil {
		s.discardImage(ctx, location)
		s.logger.Error("failed to create vlog",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/vlog: creating: %w", err)
	}

	s.logger.Info("vlog created",
		slog.String("id", vlog.ID),
		slog.String("username", vlog.Username),
		slog.String("authorID", vlog.AuthorID),
	)
	return vlog, nil
}

// List returns every vlog in insertion order.
func (s *VlogService) List(ctx context.Context) ([]model.Vlog, error) {
	vlogs, err := s.vlogs.ListVlogs(ctx)
	if err != nil {
		s.logger.Error("failed to list vlogs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/vlog: listing: %w", err)
	}
	return vlogs, nil
}

// ListByUser returns the vlogs username owns, by the same rules that decide
// who may edit or delete them.
func (s *VlogService) ListByUser(ctx context.Context, username string) ([]model.Vlog, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	who, err := identity.Resolve(ctx, s.users, username)
	if err != nil {
		return nil, fmt.Errorf("service/vlog: listing for %s: %w", username, err)
	}

	vlogs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return identity.Filter(vlogs, who), nil
}

// Update applies a partial update on behalf of in.Username.
//
// A missing vlog is reported as not found before ownership is checked.
// Only non-empty fields overwrite; date and timestamp are always refreshed.
func (s *VlogService) Update(ctx context.Context, in UpdateVlogInput) (*model.Vlog, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "vlog id is required")
	}

	vlog, err := s.vlogs.GetVlog(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/vlog: loading %s: %w", id, err)
	}

	strategy, err := s.authorize(ctx, vlog, in.Username, "edit")
	if err != nil {
		return nil, err
	}

	if t := strings.TrimSpace(in.Title); t != "" {
		vlog.Title = t
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		vlog.Description = d
	}
	if in.Content != "" {
		vlog.Content = in.Content
	}
	if err := validateLengths(vlog.Title, vlog.Description, vlog.Content); err != nil {
		return nil, err
	}

	previous, replaced := vlog.Image, ""
	if in.Image != nil {
		location, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		vlog.Image = location
		replaced = location
	}
	vlog.Touch(s.now())

	if err := s.vlogs.UpdateVlog(ctx, vlog); err != nil {
		s.discardImage(ctx, replaced)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update vlog",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/vlog: updating %s: %w", id, err)
	}

	if replaced != "" && previous != replaced {
		s.discardImage(ctx, previous)
	}

	s.logger.Info("vlog updated",
		slog.String("id", id),
		slog.String("by", in.Username),
		slog.String("ownership", strategy),
	)
	return vlog, nil
}

// Delete removes a vlog on behalf of username.
//
// An unknown id is reported exactly like a vlog owned by someone else, so
// the endpoint cannot be used to discover which ids exist.
func (s *VlogService) Delete(ctx context.Context, id, username string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "vlog id is required")
	}

	vlog, err := s.vlogs.GetVlog(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return forbidden("delete")
		}
		return fmt.Errorf("service/vlog: loading %s: %w", id, err)
	}

	strategy, err := s.authorize(ctx, vlog, username, "delete")
	if err != nil {
		return err
	}

	if err := s.vlogs.DeleteVlog(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// deleted concurrently; the outcome is what the caller asked for
			return nil
		}
		s.logger.Error("failed to delete vlog",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/vlog: deleting %s: %w", id, err)
	}

	s.logger.Info("vlog deleted",
		slog.String("id", id),
		slog.String("by", username),
		slog.String("ownership", strategy),
	)
	return nil
}

// authorize resolves who and checks it against vlog's ownership strategies.
func (s *VlogService) authorize(ctx context.Context, vlog *model.Vlog, who, action string) (string, error) {
	who = strings.TrimSpace(who)
	if who == "" {
		return "", forbidden(action)
	}

	id, err := identity.Resolve(ctx, s.users, who)
	if err != nil {
		return "", fmt.Errorf("service/vlog: authorizing %s: %w", who, err)
	}

	strategy, ok := identity.Owner(vlog, id)
	if !ok {
		s.logger.Debug("ownership check failed",
			slog.String("vlogID", vlog.ID),
			slog.String("who", who),
			slog.String("action", action),
		)
		return "", forbidden(action)
	}
	return strategy, nil
}

func forbidden(action string) error {
	return apperror.Forbidden(fmt.Sprintf("you can only %s your own vlogs", action))
}

func (s *VlogService) saveImage(ctx context.Context, img *Image) (string, error) {
	if img.Body == nil || strings.TrimSpace(img.Filename) == "" {
		return "", apperror.ValidationFailed("image", "image is required")
	}
	name, err := storage.NewObjectName(img.Filename)
	if err != nil {
		return "", apperror.ValidationFailed("image", "image must be a .jpg, .jpeg, .png, .gif or .webp file")
	}

	location, err := s.images.Save(ctx, name, img.Body)
	if err != nil {
		s.logger.Error("failed to store image",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("service/vlog: storing image: %w", err)
	}
	return location, nil
}

// discardImage deletes an image no vlog points at any more. Failures are
// logged and otherwise ignored; the vlog write already decided the outcome.
func (s *VlogService) discardImage(ctx context.Context, location string) {
	if location == "" {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), location); err != nil {
		s.logger.Warn("failed to remove unused image",
			slog.String("location", location),
			slog.String("error", err.Error()),
		)
	}
}

func validateLengths(title, description, content string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}
