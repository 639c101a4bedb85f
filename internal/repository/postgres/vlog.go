package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

const vlogColumns = `id, username, author_id, title, description, content, image, date, timestamp`

// CreateVlog stores a new vlog record.
func (db *DB) CreateVlog(ctx context.Context, vlog *model.Vlog) error {
	if vlog.ID == "" {
		vlog.ID = xid.New().String()
	}

	_, err := db.pool.Exec(ctx, `
        INSERT INTO vlogs (`+vlogColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, vlog.ID, vlog.Username, vlog.AuthorID, vlog.Title, vlog.Description,
		vlog.Content, vlog.Image, vlog.Date, vlog.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("vlog", vlog.ID)
		}
		return fmt.Errorf("postgres: insert vlog: %w", err)
	}

	return nil
}

func (db *DB) GetVlog(ctx context.Context, id string) (*model.Vlog, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+vlogColumns+` FROM vlogs WHERE id = $1`, id)

	var v model.Vlog
	if err := row.Scan(&v.ID, &v.Username, &v.AuthorID, &v.Title, &v.Description,
		&v.Content, &v.Image, &v.Date, &v.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("vlog", id)
		}
		return nil, fmt.Errorf("postgres: select vlog: %w", err)
	}

	return &v, nil
}

// ListVlogs returns every vlog in insertion order.
func (db *DB) ListVlogs(ctx context.Context) ([]model.Vlog, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+vlogColumns+` FROM vlogs ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query vlogs: %w", err)
	}
	defer rows.Close()

	vlogs := []model.Vlog{}
	for rows.Next() {
		var v model.Vlog
		if err := rows.Scan(&v.ID, &v.Username, &v.AuthorID, &v.Title, &v.Description,
			&v.Content, &v.Image, &v.Date, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan vlog: %w", err)
		}
		vlogs = append(vlogs, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate vlogs: %w", err)
	}

	return vlogs, nil
}

func (db *DB) UpdateVlog(ctx context.Context, vlog *model.Vlog) error {
	tag, err := db.pool.Exec(ctx, `
        UPDATE vlogs
        SET title = $2, description = $3, content = $4, image = $5, date = $6, timestamp = $7
        WHERE id = $1
    `, vlog.ID, vlog.Title, vlog.Description, vlog.Content, vlog.Image, vlog.Date, vlog.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: update vlog: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.NotFound("vlog", vlog.ID)
	}

	return nil
}

func (db *DB) DeleteVlog(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM vlogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete vlog: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperror.NotFound("vlog", id)
	}

	return nil
}
