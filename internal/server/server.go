// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
//   - which storage backend and image store the services get
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go: config.Load() → server.New(cfg)
//	server.New: OpenStore → repository.Store
//	            openImageStore → storage.ImageStore
//	            NewAuthService / NewVlogService → handlers → routes
//
// Everything is assembled here, in one place, rather than scattered across
// the codebase. Tests replace pieces through Options.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/vlogsite/internal/auth"
	"github.com/sakif/vlogsite/internal/config"
	"github.com/sakif/vlogsite/internal/handler"
	"github.com/sakif/vlogsite/internal/middleware"
	"github.com/sakif/vlogsite/internal/repository"
	"github.com/sakif/vlogsite/internal/repository/jsonfile"
	"github.com/sakif/vlogsite/internal/repository/postgres"
	sqliteRepo "github.com/sakif/vlogsite/internal/repository/sqlite"
	"github.com/sakif/vlogsite/internal/service"
	"github.com/sakif/vlogsite/internal/storage"
)

// rateLimitIdleTTL is how long an idle client's bucket is remembered.
const rateLimitIdleTTL = 10 * time.Minute

// Options overrides collaborators New would otherwise build from config.
// Zero values mean "build it from config".
type Options struct {
	Store          repository.Store
	Images         storage.ImageStore
	GoogleVerifier service.GoogleVerifier
	RateLimiter    middleware.RateLimiter
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store (a file lock, a SQLite handle or a Postgres
// pool) and the Google key set refresher. Close releases both; Start calls
// it after graceful shutdown.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger

	store  repository.Store
	images storage.ImageStore
	jwks   *auth.GoogleVerifier // nil unless this server started it

	tokens  *auth.TokenService
	authSvc *service.AuthService
	vlogSvc *service.VlogService
	limiter middleware.RateLimiter
}

// New builds a Server from cfg.
//
// WIRING ORDER:
//  1. Storage backend, picked by cfg.StoreDriver
//  2. Image store, picked by cfg.StorageDriver
//  3. Session tokens, passwords and (optionally) Google verification
//  4. Services, then handlers, then routes
//
// Anything opened before a later step fails is closed again.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
	}

	store := opts.Store
	if store == nil {
		var err error
		if store, err = OpenStore(ctx, cfg); err != nil {
			return nil, err
		}
	}
	s.store = store

	images := opts.Images
	if images == nil {
		var err error
		if images, err = openImageStore(ctx, cfg); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.images = images

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("server: creating token service: %w", err)
	}
	s.tokens = tokens

	google := opts.GoogleVerifier
	if google == nil && cfg.GoogleEnabled() {
		v, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("server: loading google keys: %w", err)
		}
		s.jwks = v
		google = v
	}

	s.limiter = opts.RateLimiter
	if s.limiter == nil && cfg.RateLimitRequests > 0 {
		s.limiter = middleware.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst, rateLimitIdleTTL)
	}

	s.authSvc = service.NewAuthService(store, tokens, auth.NewPasswordService(), google, logger)
	s.vlogSvc = service.NewVlogService(store, store, images, logger)

	s.setupRoutes()
	return s, nil
}

// OpenStore opens the backend cfg names. cmd/importer uses it to reach the
// same store the server would.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite store: %w", err)
		}
		return db, nil
	case config.StorePostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres store: %w", err)
		}
		return db, nil
	default:
		st, err := jsonfile.Open(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("server: opening json store: %w", err)
		}
		return st, nil
	}
}

func openImageStore(ctx context.Context, cfg config.Config) (storage.ImageStore, error) {
	if cfg.StorageDriver == config.StorageS3 {
		st, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("server: creating s3 image store: %w", err)
		}
		return st, nil
	}

	st, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		return nil, fmt.Errorf("server: creating local image store: %w", err)
	}
	return st, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /signup, /login              → accounts (rate limited)
//	POST   /auth/google                 → Google ID token (rate limited)
//	GET    /auth/google/login, callback → Google redirect flow (rate limited)
//	GET    /auth/user, POST /auth/logout → session cookie
//	GET    /user                        → user lookup
//	POST   /upload                      → create vlog
//	GET    /vlogs, /uservlogs/{username} → list vlogs
//	PUT    /vlogs/{id}                  → update vlog
//	DELETE /vlogs/{id}/{username}       → delete vlog
//	GET    /healthz                     → liveness
//	GET    /uploads/*, /*               → images and the frontend
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger and the rate limiter see
// them; CORS answers preflights before the session is even looked at.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Session(s.tokens))

	var provider *auth.GoogleProvider
	if s.cfg.GoogleRedirectEnabled() {
		provider = auth.NewGoogleProvider(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.GoogleCallbackURL)
	}

	authHandler := handler.NewAuthHandler(s.authSvc, provider, s.cfg.SecureCookies, s.logger)
	vlogHandler := handler.NewVlogHandler(s.vlogSvc, s.cfg.MaxUploadBytes, s.logger)

	r.Get("/healthz", handler.HandleHealth)

	// Credential-accepting endpoints share one per-IP budget.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter, "auth"))

		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/auth/google", authHandler.HandleGoogleToken)
		if provider != nil {
			r.Get("/auth/google/login", authHandler.HandleGoogleLogin)
			r.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	r.Get("/auth/user", authHandler.HandleCurrentUser)
	r.Post("/auth/logout", authHandler.HandleLogout)
	r.Get("/user", authHandler.HandleFindUser)

	r.Post("/upload", vlogHandler.HandleCreate)
	r.Get("/vlogs", vlogHandler.HandleList)
	r.Get("/uservlogs/{username}", vlogHandler.HandleListByUser)
	r.Put("/vlogs/{id}", vlogHandler.HandleUpdate)
	r.Delete("/vlogs/{id}/{username}", vlogHandler.HandleDelete)

	// === Static Files ===
	// http.StripPrefix removes the URL prefix before the file lookup, so
	// GET /uploads/abc.png → {UploadDir}/abc.png
	if local, ok := s.images.(*storage.LocalStore); ok {
		prefix := "/" + strings.Trim(s.cfg.UploadURLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(local.Dir()))))
	}
	if s.cfg.StaticDir != "" {
		if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
		}
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and stops the Google key refresher.
func (s *Server) Close() error {
	if s.jwks != nil {
		s.jwks.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store (releases the file lock / connections)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.router,
		// Uploads can be large; the read timeout must cover them.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.cfg.Port),
			slog.String("url", "http://localhost:"+s.cfg.Port),
			slog.String("store", s.cfg.StoreDriver),
			slog.String("images", s.cfg.StorageDriver),
			slog.Bool("google", s.cfg.GoogleEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
