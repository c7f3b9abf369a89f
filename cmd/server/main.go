// cmd/server is the registration API entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/premierdelan/internal/auth"
	"github.com/Shivanand-hulikatti/premierdelan/internal/config"
	"github.com/Shivanand-hulikatti/premierdelan/internal/database"
	"github.com/Shivanand-hulikatti/premierdelan/internal/handler"
	"github.com/Shivanand-hulikatti/premierdelan/internal/logging"
	"github.com/Shivanand-hulikatti/premierdelan/internal/repository"
	"github.com/Shivanand-hulikatti/premierdelan/internal/repository/kvdb"
	"github.com/Shivanand-hulikatti/premierdelan/internal/service"
	"github.com/Shivanand-hulikatti/premierdelan/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPURL)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	// ── 1. Open storage ───────────────────────────────────────────────────
	events, registrations, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	var signer *auth.Signer
	if cfg.JWTSecret != "" {
		if signer, err = auth.NewSigner(cfg.JWTSecret, 0); err != nil {
			return err
		}
	} else {
		logger.Warn("JWT_SECRET not set, authentication disabled")
	}
	eventSvc := service.NewEventService(events, registrations, logger)
	eventHandler := handler.NewEventHandler(eventSvc, logger)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(eventHandler, signer, logger, cfg.StaticDir),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStorage connects the backend named by DATABASE_URL.
func openStorage(ctx context.Context, cfg config.Server, logger *zap.Logger) (repository.EventStore, repository.RegistrationStore, func(), error) {
	storage, err := cfg.Storage()
	if err != nil {
		return nil, nil, nil, err
	}

	switch storage.Scheme {
	case "kvdb":
		db, err := kvdb.Open(storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using bbolt storage", zap.String("path", storage.DSN))
		return kvdb.NewEventStore(db), kvdb.NewRegistrationStore(db), func() { db.Close() }, nil
	default:
		pool, err := database.NewPool(ctx, storage.DSN, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("connected to PostgreSQL")
		return repository.NewEventRepository(pool), repository.NewRegistrationRepository(pool), pool.Close, nil
	}
}
