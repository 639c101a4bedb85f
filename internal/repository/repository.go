// Package repository declares the persistence contracts used by the service
// layer. Implementations live in subpackages (jsonfile, sqlite, postgres) and
// all report missing records with apperror.ErrNotFound and uniqueness
// violations with apperror.ErrConflict.
package repository

import (
	"context"

	"github.com/sakif/vlogsite/internal/model"
)

// UserRepository stores user accounts. Email is unique; username is not, so
// FindUserByUsername returns the earliest-created match.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// VlogRepository stores vlogs. ListVlogs returns records in insertion order.
type VlogRepository interface {
	CreateVlog(ctx context.Context, vlog *model.Vlog) error
	GetVlog(ctx context.Context, id string) (*model.Vlog, error)
	ListVlogs(ctx context.Context) ([]model.Vlog, error)
	UpdateVlog(ctx context.Context, vlog *model.Vlog) error
	DeleteVlog(ctx context.Context, id string) error
}

// Store is a complete storage backend.
type Store interface {
	UserRepository
	VlogRepository
	Close() error
}
