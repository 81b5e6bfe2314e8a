package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	jwtauth "caregiver-support/internal/adapters/auth/jwt"
	pg "caregiver-support/internal/adapters/storage/postgres"
	lite "caregiver-support/internal/adapters/storage/sqlite"
	"caregiver-support/internal/domain/emergencyinfo"
	"caregiver-support/internal/platform/config"
	"caregiver-support/internal/platform/logger"
	"caregiver-support/internal/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title Caregiver Support API
// @version 1.0
// @description API para cuidadores: care recipients, registros diarios, ficha de emergencia y resumen del día.
// @BasePath /api
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}
	if cfg.DevAuth {
		log.Warn("DEV_AUTH enabled: X-Debug-User-ID is trusted", nil)
	}

	mode, err := emergencyinfo.ParseUnlockMode(cfg.EmergencyUnlockMode)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := router.NewRouter(router.Options{
		Logger:              log,
		DB:                  db,
		Storage:             cfg.Storage,
		Tokens:              jwtauth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		DevAuth:             cfg.DevAuth,
		EmergencyUnlockMode: mode,
		Registry:            reg,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Addr, "storage": string(cfg.Storage)})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage devuelve nil para el modo in-memory.
func openStorage(cfg config.Config) (*sql.DB, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		db, err := pg.Open(ctx, cfg.DBDSN, pg.PoolOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			PingTimeout:     cfg.DBPingTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case config.StorageSQLite:
		db, err := lite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, nil
	}
}
