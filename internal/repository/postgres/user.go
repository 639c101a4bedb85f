package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

const userColumns = `id, username, email, password_hash, google_id, name, picture, is_google_auth, created_at`

// CreateUser persists a new user record.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx, `
        INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.PasswordHash, user.GoogleID,
		user.Name, user.Picture, user.IsGoogleAuth, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}

	return nil
}

// UpdateUser modifies an existing user record.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	tag, err := db.pool.Exec(ctx, `
        UPDATE users
        SET username = $2, email = $3, password_hash = $4, google_id = $5,
            name = $6, picture = $7, is_google_auth = $8
        WHERE id = $1
    `, user.ID, user.Username, user.Email, user.PasswordHash, user.GoogleID,
		user.Name, user.Picture, user.IsGoogleAuth)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("postgres: update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

func (db *DB) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.findUser(ctx, "id", id)
}

func (db *DB) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.findUser(ctx, "username", username)
}

func (db *DB) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findUser(ctx, "email", email)
}

// findUser fetches the oldest user whose column equals value. column is one
// of the fixed names above.
func (db *DB) findUser(ctx context.Context, column, value string) (*model.User, error) {
	row := db.pool.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE `+column+` = $1
        ORDER BY seq
        LIMIT 1
    `, value)

	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GoogleID,
		&u.Name, &u.Picture, &u.IsGoogleAuth, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", column+" "+value)
		}
		return nil, fmt.Errorf("postgres: select user by %s: %w", column, err)
	}

	return &u, nil
}
