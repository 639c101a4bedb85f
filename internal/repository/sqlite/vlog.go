package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

const vlogColumns = `id, username, author_id, title, description, content, image, date, timestamp`

// CreateVlog inserts a vlog, generating an xid when ID is empty.
func (db *DB) CreateVlog(ctx context.Context, vlog *model.Vlog) error {
	if vlog.ID == "" {
		vlog.ID = xid.New().String()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO vlogs (`+vlogColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vlog.ID,
		vlog.Username,
		vlog.AuthorID,
		vlog.Title,
		vlog.Description,
		vlog.Content,
		vlog.Image,
		vlog.Date,
		vlog.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("vlog", vlog.ID)
		}
		return fmt.Errorf("sqlite: creating vlog: %w", err)
	}

	return nil
}

func (db *DB) GetVlog(ctx context.Context, id string) (*model.Vlog, error) {
	var v model.Vlog

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+vlogColumns+` FROM vlogs WHERE id = ?`,
		id,
	).Scan(
		&v.ID, &v.Username, &v.AuthorID, &v.Title, &v.Description,
		&v.Content, &v.Image, &v.Date, &v.Timestamp,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("vlog", id)
		}
		return nil, fmt.Errorf("sqlite: getting vlog %s: %w", id, err)
	}

	return &v, nil
}

// ListVlogs returns every vlog in insertion order.
func (db *DB) ListVlogs(ctx context.Context) ([]model.Vlog, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+vlogColumns+` FROM vlogs ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing vlogs: %w", err)
	}
	defer rows.Close()

	vlogs := []model.Vlog{}
	for rows.Next() {
		var v model.Vlog
		if err := rows.Scan(
			&v.ID, &v.Username, &v.AuthorID, &v.Title, &v.Description,
			&v.Content, &v.Image, &v.Date, &v.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vlog row: %w", err)
		}
		vlogs = append(vlogs, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vlogs: %w", err)
	}

	return vlogs, nil
}

// UpdateVlog rewrites the mutable columns of an existing vlog. Ownership
// columns (username, author_id) are never changed after creation.
func (db *DB) UpdateVlog(ctx context.Context, vlog *model.Vlog) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE vlogs
		 SET title = ?, description = ?, content = ?, image = ?, date = ?, timestamp = ?
		 WHERE id = ?`,
		vlog.Title,
		vlog.Description,
		vlog.Content,
		vlog.Image,
		vlog.Date,
		vlog.Timestamp,
		vlog.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating vlog %s: %w", vlog.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("vlog", vlog.ID)
	}

	return nil
}

func (db *DB) DeleteVlog(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM vlogs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting vlog %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("vlog", id)
	}

	return nil
}
