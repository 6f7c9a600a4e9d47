package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shop_api/internal/config"
	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/es"
	"github.com/Skotchmaster/shop_api/internal/httpserver"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/shop_api/internal/middleware/logging"
	"github.com/Skotchmaster/shop_api/internal/mykafka"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/search"
	"github.com/Skotchmaster/shop_api/internal/service"
)

const (
	sessionPurgeInterval = time.Hour
	indexBackfillTimeout = time.Minute
)

func main() {
	config.LoadEnvFile(".env")
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("db close failed", "error", err)
		}
	}()

	gormRepo := repo.NewGormRepo(gdb)

	var sessions service.SessionStore = gormRepo
	if cfg.RedisURL != "" {
		rs, err := repo.NewRedisSessions(initCtx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer rs.Close()
		sessions = rs
		logger.Info("session store", "backend", "redis")
	} else {
		go purgeSessions(ctx, gormRepo)
		logger.Info("session store", "backend", "database")
	}

	var events service.EventPublisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka init: %w", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("kafka close failed", "error", err)
			}
		}()
		events = producer
		logger.Info("events enabled", "brokers", cfg.KafkaBrokers)
	}

	var index service.ProductIndex = search.NewDBIndex(gormRepo)
	if cfg.ESURL != "" {
		client, err := es.NewClient(initCtx, es.Options{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			return fmt.Errorf("elasticsearch init: %w", err)
		}
		index = search.NewElasticIndex(client, cfg.ESIndex)
	}
	catalog := &service.CatalogService{Products: gormRepo, Index: index, Events: events}
	if cfg.ESURL != "" {
		backfillIndex(ctx, catalog)
	}

	authSvc := &service.AuthService{
		Users:    gormRepo,
		Sessions: sessions,
		Events:   events,
		Secret:   cfg.SessionSecret,
		TTL:      cfg.SessionTTL,
	}
	if err := seedUsers(initCtx, authSvc, cfg.SeedUsers); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	// Browsers refuse credentialed responses for a wildcard origin.
	wildcard := slices.Contains(cfg.CORSOrigins, "*")
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: !wildcard,
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalog},
		CartHandler: &httpserver.CartHTTP{Svc: &service.CartService{Cart: gormRepo, Events: events}},
		Auth:        auth.NewSessionAuth(authSvc, cfg.CookieSecure),
		Ready: func(ctx context.Context) error {
			return db.Ping(ctx, gdb)
		},
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func seedUsers(ctx context.Context, svc *service.AuthService, users map[string]string) error {
	l := logging.FromContext(ctx)
	for username, password := range users {
		created, err := svc.SeedUser(ctx, username, password)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", username, err)
		}
		if created {
			l.Info("user seeded", "username", username)
		}
	}
	return nil
}

func backfillIndex(ctx context.Context, catalog *service.CatalogService) {
	l := logging.FromContext(ctx).With("job", "index_backfill")

	ctx, cancel := context.WithTimeout(ctx, indexBackfillTimeout)
	defer cancel()

	n, err := catalog.Reindex(ctx)
	if err != nil {
		l.Error("backfill_failed", "indexed", n, "error", err)
		return
	}
	l.Info("backfilled", "products", n)
}

func purgeSessions(ctx context.Context, r *repo.GormRepo) {
	l := logging.FromContext(ctx).With("job", "session_purge")
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.PurgeSessions(ctx)
			if err != nil {
				l.Error("purge_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("purged", "sessions", n)
			}
		}
	}
}
