// Command importer copies a legacy data.json document into the store the
// server is configured to use (STORE_DRIVER and friends, see internal/config).
//
// Usage:
//
//	STORE_DRIVER=sqlite DB_PATH=vlogsite.db importer -source data.json
//	STORE_DRIVER=postgres DATABASE_URL=postgres://... importer -source data.json -link-authors
//
// Running it twice is harmless: users whose email is already present and
// vlogs whose id is already present are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/vlogsite/internal/config"
	"github.com/sakif/vlogsite/internal/repository/jsonfile"
	"github.com/sakif/vlogsite/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(os.Args[1:], logger); err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run does all the work so that deferred closes happen before main exits.
func run(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("importer", flag.ExitOnError)
	source := fs.String("source", "data.json", "legacy flat-file document to read")
	linkAuthors := fs.Bool("link-authors", false, "fill a missing authorId from the vlog's username when it resolves to a user")
	timeout := fs.Duration("timeout", 10*time.Minute, "give up after this long")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: importer -source data.json [-link-authors] [-timeout 10m]")
		fmt.Fprintln(fs.Output(), "\nThe destination store is read from the environment, as for the server.")
		fmt.Fprintln(fs.Output(), "\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.StoreDriver == config.StoreJSON && samePath(cfg.DataPath, *source) {
		return fmt.Errorf("source and destination are the same file: %s", *source)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	src, err := openSource(*source)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening destination: %w", err)
	}
	defer dst.Close()

	imp := &importer{src: src, dst: dst, linkAuthors: *linkAuthors, logger: logger}
	stats, err := imp.run(ctx)
	if err != nil {
		return err
	}

	logger.Info("import finished",
		slog.String("source", *source),
		slog.String("store", cfg.StoreDriver),
		slog.Int("usersImported", stats.UsersImported),
		slog.Int("usersSkipped", stats.UsersSkipped),
		slog.Int("vlogsImported", stats.VlogsImported),
		slog.Int("vlogsSkipped", stats.VlogsSkipped),
		slog.Int("vlogsLinked", stats.VlogsLinked),
	)
	return nil
}

// openSource opens an existing document. jsonfile.Open would create a
// missing one, which turns a mistyped path into an empty import.
func openSource(path string) (*jsonfile.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("opening source: %s is a directory", path)
	}

	src, err := jsonfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	return src, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
