// Package postgres implements the repository interfaces on PostgreSQL using
// a pgx connection pool. It is the backend to choose when more than one
// server process shares the data.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/vlogsite/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB is a pgxpool-backed repository.Store.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and creates the
// schema if needed.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// migrate creates both tables. The seq identity columns exist only to give
// listings a stable insertion order.
func (db *DB) migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            seq            BIGINT GENERATED ALWAYS AS IDENTITY,
            id             TEXT PRIMARY KEY,
            username       TEXT NOT NULL,
            email          TEXT NOT NULL UNIQUE,
            password_hash  TEXT NOT NULL DEFAULT '',
            google_id      TEXT NOT NULL DEFAULT '',
            name           TEXT NOT NULL DEFAULT '',
            picture        TEXT NOT NULL DEFAULT '',
            is_google_auth BOOLEAN NOT NULL DEFAULT FALSE,
            created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
        );
        CREATE INDEX IF NOT EXISTS idx_users_username ON users (username);

        CREATE TABLE IF NOT EXISTS vlogs (
            seq         BIGINT GENERATED ALWAYS AS IDENTITY,
            id          TEXT PRIMARY KEY,
            username    TEXT NOT NULL,
            author_id   TEXT NOT NULL DEFAULT '',
            title       TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            content     TEXT NOT NULL DEFAULT '',
            image       TEXT NOT NULL DEFAULT '',
            date        TEXT NOT NULL DEFAULT '',
            timestamp   BIGINT NOT NULL DEFAULT 0
        );
        CREATE INDEX IF NOT EXISTS idx_vlogs_username ON vlogs (username);
        CREATE INDEX IF NOT EXISTS idx_vlogs_author_id ON vlogs (author_id);
    `)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
