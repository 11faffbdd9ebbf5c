package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/app"
	"github.com/haukened/upid/internal/config"
	"github.com/haukened/upid/internal/httpx"
	"github.com/haukened/upid/internal/janitor"
	"github.com/haukened/upid/internal/metrics"
	"github.com/haukened/upid/internal/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, nil)
		},
	}
}

func ensureDataDir(dir string) error {
	st, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat data directory: %w", err)
	case !st.IsDir():
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}

func openDatabase(cfg *config.Config) (*sql.DB, *sqlite.Registry, error) {
	db, err := sql.Open("sqlite3", cfg.SQLiteDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite driver: %w", err)
	}
	reg, err := sqlite.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return db, reg, nil
}

func buildService(cfg *config.Config, reg app.Registry, counter app.Counter) *app.Service {
	return &app.Service{
		Generator: upid.Default,
		Registry:  reg,
		Clock:     realClock{},
		Metrics:   counter,
		Prefixes:  cfg.Prefixes,
	}
}

func buildHandler(cfg *config.Config, svc *app.Service, reg *sqlite.Registry, mgr *metrics.Manager) http.Handler {
	h := httpx.New(svc, reg.Ping)
	h.Metrics = metrics.Handler(mgr, cfg.MetricsToken)
	return h.Router()
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
}

// run serves until ctx is cancelled. When ln is nil it listens on cfg.Addr.
func run(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	if err := ensureDataDir(cfg.DataDir); err != nil {
		return err
	}
	db, reg, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	mgr := metrics.New(db, metrics.Config{Logger: slog.Default()})
	if err := mgr.InitSchema(ctx); err != nil {
		return fmt.Errorf("init metrics schema: %w", err)
	}
	mgr.Start(ctx)
	defer func() {
		if err := mgr.Stop(context.Background()); err != nil {
			slog.Error("metrics final flush", "error", err)
		}
	}()

	jan := janitor.New(reg, mgr, janitor.Config{
		Interval:  cfg.JanitorInterval,
		Retention: cfg.Retention,
		Logger:    slog.Default(),
	})
	jan.Start(ctx)
	defer jan.Stop()

	if ln == nil {
		if ln, err = net.Listen("tcp", cfg.Addr); err != nil {
			return err
		}
	}
	srv := newServer(buildHandler(cfg, buildService(cfg, reg, mgr), reg, mgr))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("starting server", "addr", ln.Addr().String(), "pid", os.Getpid(), "prefixes", cfg.Prefixes)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down", "reason", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
