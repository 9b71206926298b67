package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/devmsrajput/yt-backend/internal/config"
	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/handlers"
	"github.com/devmsrajput/yt-backend/internal/httpserver"
	"github.com/devmsrajput/yt-backend/internal/logging"
)

// Run bootstraps the video platform backend.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve or migrate")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, db.Options{
		URL:             cfg.DatabaseURL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}

	srv := httpserver.New(handlers.NewRouter(deps), httpserver.Options{
		Port:          cfg.AppPort,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		ShutdownGrace: cfg.ShutdownTimeout,
	})
	logger.Info("starting http server", "addr", srv.Addr(), "metrics", cfg.MetricsEnabled)

	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("http server stopped", "error", runErr)
	} else {
		logger.Info("http server stopped", "cause", context.Cause(ctx))
	}

	// Requests are drained first so their releases reach the janitor before it stops.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := cleanup(cleanupCtx); err != nil {
		logger.Error("background workers shutdown", "error", err)
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// migrator applies a migrate command and reports the resulting schema version.
type migrator func(databaseURL, command string) (uint, bool, error)

var applyMigrations migrator = db.Migrate

func runMigrations(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	version, dirty, err := applyMigrations(cfg.DatabaseURL, command)
	if err != nil {
		return err
	}

	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(out, "schema version %d (%s)\n", version, state)
	return nil
}
