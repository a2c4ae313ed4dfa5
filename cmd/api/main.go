package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"sharelooped/internal/config"
	transporthttp "sharelooped/internal/http"
	"sharelooped/internal/i18n"
	"sharelooped/internal/identity"
	"sharelooped/internal/metrics"
	"sharelooped/internal/platform/database"
	"sharelooped/internal/platform/logging"
	"sharelooped/internal/platform/migrate"
	"sharelooped/internal/profile"
	"sharelooped/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	identityRepo, profileStore, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	collector := metrics.NewCollector()

	provider := identity.NewProvider(identityRepo, cfg.SessionTTL)
	hub := session.NewHub(collector)
	manager := session.NewManager(provider, profileStore, hub, collector, logger)

	catalog, err := i18n.LoadCatalog(logger, collector)
	if err != nil {
		logger.Error("failed to load translation catalog", "error", err)
		os.Exit(1)
	}
	languageState, err := i18n.NewState(i18n.NewFileStore(cfg.LanguageStatePath), logger)
	if err != nil {
		logger.Error("failed to load language state", "error", err)
		os.Exit(1)
	}

	deps := transporthttp.RouterDeps{
		Manager: manager,
		Catalog: catalog,
		State:   languageState,
		Metrics: collector.Handler(),
		Logger:  logger,
	}

	if cfg.OAuthEnabled() {
		google, err := identity.NewGoogleAuthenticator(ctx,
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL,
			cfg.AllowedDomains, cfg.AllowedEmails)
		if err != nil {
			logger.Error("failed to initialize Google authenticator", "error", err)
			os.Exit(1)
		}
		deps.Google = google
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: the session watch stream is long-lived.
		WriteTimeout:   0,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: http.DefaultMaxHeaderBytes,
	}

	sweeper := startSessionSweeper(ctx, provider, logger)

	go func() {
		logger.Info("Share Looped API listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	<-sweeper
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (identity.Repository, profile.Store, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory stores")
		repo := identity.NewMemoryRepository()
		seedDemoAccount(ctx, repo, logger)
		return repo, profile.NewMemoryStore(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	logger.Info("connected to postgres")
	return identity.NewPostgresRepository(db), profile.NewPostgresStore(db), cleanup, nil
}

// startSessionSweeper periodically removes expired sessions until ctx is
// cancelled. The returned channel closes when the sweeper has stopped.
func startSessionSweeper(ctx context.Context, provider *identity.Provider, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(time.Hour)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := provider.CleanupExpiredSessions(ctx)
				if err != nil {
					logger.Error("session cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					logger.Info("expired sessions removed", "count", removed)
				}
			}
		}
	}()

	return done
}
