package main

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
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/SEBSEB62/KAYE-sub000/internal/cache"
	"github.com/SEBSEB62/KAYE-sub000/internal/config"
	"github.com/SEBSEB62/KAYE-sub000/internal/httpapi"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
	"github.com/SEBSEB62/KAYE-sub000/internal/persist"
	"github.com/SEBSEB62/KAYE-sub000/internal/service"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
	"github.com/SEBSEB62/KAYE-sub000/internal/store/legacy"
	"github.com/SEBSEB62/KAYE-sub000/internal/store/memory"
	pgstore "github.com/SEBSEB62/KAYE-sub000/internal/store/postgres"
	"github.com/SEBSEB62/KAYE-sub000/internal/suggest"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Error("invalid security configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres unavailable and DATABASE_URL is set, refusing in-memory fallback: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return fmt.Errorf("preparing schema: %w", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", "backend", "postgres")
	} else {
		repo = memory.New()
		logger.Warn("repository ready", "backend", "memory", "note", "data is lost on restart")
	}

	var (
		cacheStore cache.Cache = cache.NewMemory()
		legacySrc  legacy.Source
	)
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisCache := cache.NewRedis(client, "buvette:")
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process cache", "error", err)
			_ = client.Close()
		} else {
			cacheStore = redisCache
			legacySrc = legacy.NewRedis(client)
			closers = append(closers, client.Close)
			logger.Info("cache ready", "backend", "redis")
		}
	}

	svc := service.New(service.Deps{
		Repo:      repo,
		Queue:     persist.NewQueue(repo, cfg.PersistIdleDelay, logger),
		Legacy:    legacySrc,
		Cache:     cacheStore,
		ReportTTL: cfg.ReportCacheTTL,
		Gate:      license.NewGate(newVerifier(cfg, logger)),
		Suggest:   suggest.NewEngine(cacheStore, cfg.SuggestCacheTTL),
		Ideas:     suggest.NewAIClient(cfg.SuggestAPIURL, cfg.SuggestAPIKey, cfg.SuggestTimeout),
		Location:  cfg.Location(),
		Logger:    logger,

		ClaimSecret: cfg.ClaimSecret,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigins: cfg.Origins(),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("buvette backend listening", "addr", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	// Pending writes go out before the store closes.
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error("flushing pending writes failed", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func newVerifier(cfg config.Config, logger *slog.Logger) license.Verifier {
	if cfg.LicenseAPIURL == "" {
		logger.Info("licence keys checked offline")
		return license.OfflineVerifier{}
	}
	client := &http.Client{Timeout: 10 * time.Second}
	if cfg.LicenseOAuthClientID != "" && cfg.LicenseOAuthTokenURL != "" {
		client = license.OAuthClient(context.Background(), cfg.LicenseOAuthClientID, cfg.LicenseOAuthSecret, cfg.LicenseOAuthTokenURL, cfg.OAuthScopes())
		client.Timeout = 10 * time.Second
	}
	logger.Info("licence keys checked remotely", "url", cfg.LicenseAPIURL)
	return license.NewHTTPVerifier(cfg.LicenseAPIURL, cfg.LicenseAPIKey, client)
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if strings.Contains(cfg.AllowedOrigins, "*") && cfg.DatabaseURL != "" {
		return fmt.Errorf("ALLOWED_ORIGINS cannot be a wildcard in production")
	}
	return nil
}
