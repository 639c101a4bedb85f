package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vlogsite/internal/repository/sqlite"
)

const legacyDocument = `{
  "users": [
    {"id": "1700000000000", "username": "alice", "email": "a@x.com", "password": "$2a$04$hash"},
    {"id": "1700000000001", "username": "bob_smith", "email": "b@x.com", "password": null,
     "googleId": "g-1", "name": "Bob Smith", "isGoogleAuth": true}
  ],
  "vlogs": [
    {"id": "1700000000002", "username": "alice", "authorId": null, "title": "first",
     "description": "D", "content": "D", "image": "/uploads/1.png",
     "date": "5/1/2024, 10:00:00 AM", "timestamp": 1714557600000},
    {"id": "1700000000003", "username": "ghost", "authorId": null, "title": "orphan",
     "description": "D", "content": "D", "image": "/uploads/2.png",
     "date": "5/1/2024, 11:00:00 AM", "timestamp": 1714561200000}
  ]
}`

func newImporter(t *testing.T, link bool) (*importer, *sqlite.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))

	src, err := openSource(path)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	dst, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })

	return &importer{
		src:         src,
		dst:         dst,
		linkAuthors: link,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, dst
}

func TestImporter_CopiesEverything(t *testing.T) {
	imp, dst := newImporter(t, false)
	ctx := context.Background()

	stats, err := imp.run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{UsersImported: 2, VlogsImported: 2}, stats)

	alice, err := dst.FindUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", alice.ID, "legacy ids are kept")
	assert.Equal(t, "$2a$04$hash", alice.PasswordHash)

	bob, err := dst.FindUserByUsername(ctx, "bob_smith")
	require.NoError(t, err)
	assert.True(t, bob.IsGoogleAuth)
	assert.False(t, bob.HasPassword())

	vlogs, err := dst.ListVlogs(ctx)
	require.NoError(t, err)
	require.Len(t, vlogs, 2)
	assert.Equal(t, "first", vlogs[0].Title)
	assert.Empty(t, vlogs[0].AuthorID)
	assert.Equal(t, int64(1714557600000), vlogs[0].Timestamp)
}

func TestImporter_SecondRunSkips(t *testing.T) {
	imp, _ := newImporter(t, false)
	ctx := context.Background()

	_, err := imp.run(ctx)
	require.NoError(t, err)

	stats, err := imp.run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{UsersSkipped: 2, VlogsSkipped: 2}, stats)
}

func TestImporter_LinkAuthors(t *testing.T) {
	imp, dst := newImporter(t, true)
	ctx := context.Background()

	stats, err := imp.run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VlogsLinked, "only alice resolves; ghost has no account")

	v, err := dst.GetVlog(ctx, "1700000000002")
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", v.AuthorID)

	orphan, err := dst.GetVlog(ctx, "1700000000003")
	require.NoError(t, err)
	assert.Empty(t, orphan.AuthorID)
}

func TestSamePath(t *testing.T) {
	assert.True(t, samePath("data.json", "./data.json"))
	assert.False(t, samePath("data.json", "other.json"))
}

func TestOpenSource_MissingFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.json")

	src, err := openSource(path)
	require.Error(t, err)
	assert.Nil(t, src)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "a missing source must not be created")
}

func TestOpenSource_Directory(t *testing.T) {
	_, err := openSource(t.TempDir())
	assert.Error(t, err)
}

func TestRun_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "vlogsite.db"))
	t.Setenv("SESSION_SECRET", "importer-test-secret-value")

	source := filepath.Join(dir, "typo.json")
	err := run([]string{"-source", source}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	_, statErr := os.Stat(source)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_ImportsIntoConfiguredStore(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(source, []byte(legacyDocument), 0o644))
	dbPath := filepath.Join(dir, "vlogsite.db")

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("SESSION_SECRET", "importer-test-secret-value")

	err := run([]string{"-source", source}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// run closed the destination; reopening sees the committed rows
	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	vlogs, err := db.ListVlogs(context.Background())
	require.NoError(t, err)
	assert.Len(t, vlogs, 2)
}
