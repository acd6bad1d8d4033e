// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/mudbeaver/site-api/internal/captcha"
	"github.com/mudbeaver/site-api/internal/config"
	"github.com/mudbeaver/site-api/internal/handler/api"
	"github.com/mudbeaver/site-api/internal/logging"
	"github.com/mudbeaver/site-api/internal/media"
	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/util"
	"github.com/mudbeaver/site-api/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	createKeyName := flag.String("create-api-key", "", "Create an admin API key with the given name and exit")
	backfillSlugs := flag.Bool("backfill-slugs", false, "Derive and store slugs for posts that lack one, then exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "siteapi - MudBeaver website backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_DB_PATH            SQLite database path (default: ./data/siteapi.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_MEDIA_CLOUD_NAME   Media host cloud name\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_MEDIA_API_KEY      Media host API key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_MEDIA_API_SECRET   Media host API secret\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_MAX_UPLOAD_SIZE    Upload cap in bytes (default: 10485760)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEAPI_HCAPTCHA_SECRET_KEY  hCaptcha secret key (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("siteapi %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(*createKeyName, *backfillSlugs); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(createKeyName string, backfillSlugs bool) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(textHandler))

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Mirror warnings and errors into the events table from here on.
	slog.SetDefault(slog.New(logging.NewEventLogHandler(textHandler, db)))

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	if createKeyName != "" {
		return createAPIKey(ctx, db, createKeyName)
	}
	if backfillSlugs {
		return backfillPostSlugs(ctx, db)
	}

	var mediaClient *media.Client
	if cfg.MediaConfigured() {
		mediaClient = media.NewClient(cfg.MediaBaseURL, cfg.MediaCloudName,
			cfg.MediaAPIKey, cfg.MediaAPISecret, cfg.MediaFolder)
		slog.Info("media host configured", "cloud", cfg.MediaCloudName, "folder", cfg.MediaFolder)
	} else {
		slog.Warn("media host not configured, uploads will fail")
	}

	verifier := captcha.NewVerifier(cfg.HCaptchaSecretKey)
	if verifier.Enabled() {
		slog.Info("captcha verification enabled")
	}

	apiHandler := api.NewHandler(db, cfg, mediaClient, verifier, versionInfo)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Mount("/api/v1", apiHandler.Routes())

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// createAPIKey mints an admin API key owned by the seeded administrator
// and prints the raw key once.
func createAPIKey(ctx context.Context, db *sql.DB, name string) error {
	queries := store.New(db)

	admin, err := queries.GetUserByEmail(ctx, store.DefaultAdminEmail)
	if err != nil {
		return fmt.Errorf("looking up administrator account: %w", err)
	}

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	now := time.Now()
	key, err := queries.CreateAPIKey(ctx, store.CreateAPIKeyParams{
		Name:      name,
		KeyHash:   model.HashAPIKey(rawKey),
		KeyPrefix: prefix,
		Role:      model.RoleAdmin,
		IsActive:  true,
		CreatedBy: admin.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("storing key: %w", err)
	}

	fmt.Printf("Created API key %q (id %d, prefix %s)\n", key.Name, key.ID, key.KeyPrefix)
	fmt.Printf("Key (shown once, store it now): %s\n", rawKey)
	return nil
}

// backfillPostSlugs derives and stores a slug for every post that has none.
// Posts whose derived slug would collide with a stored one are skipped and
// reported.
func backfillPostSlugs(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	queries := store.New(db).WithTx(tx)

	posts, err := queries.ListPostsMissingSlug(ctx)
	if err != nil {
		return fmt.Errorf("listing posts without slugs: %w", err)
	}
	if len(posts) == 0 {
		slog.Info("no posts need slug backfill")
		return nil
	}

	var updated, skipped int
	for _, post := range posts {
		s := util.Slugify(post.Title)
		if s == "" {
			slog.Warn("cannot derive slug", "category", model.EventCategoryPost,
				"post_id", post.ID, "title", post.Title)
			skipped++
			continue
		}
		exists, err := queries.SlugExists(ctx, s)
		if err != nil {
			return fmt.Errorf("checking slug %q: %w", s, err)
		}
		if exists != 0 {
			slog.Warn("slug collision during backfill", "category", model.EventCategoryPost,
				"post_id", post.ID, "slug", s)
			skipped++
			continue
		}
		err = queries.UpdatePostSlug(ctx, store.UpdatePostSlugParams{
			ID:        post.ID,
			Slug:      util.NullStringFromValue(s),
			UpdatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("storing slug for post %d: %w", post.ID, err)
		}
		slog.Info("slug backfilled", "post_id", post.ID, "slug", s)
		updated++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing slug backfill: %w", err)
	}
	slog.Info("slug backfill finished", "updated", updated, "skipped", skipped)
	return nil
}
