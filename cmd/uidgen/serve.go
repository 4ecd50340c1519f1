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
	"time"

	"github.com/haukened/uidgen/internal/app"
	"github.com/haukened/uidgen/internal/auth"
	"github.com/haukened/uidgen/internal/config"
	"github.com/haukened/uidgen/internal/directory"
	dirfile "github.com/haukened/uidgen/internal/directory/file"
	dirsqlite "github.com/haukened/uidgen/internal/directory/sqlite"
	"github.com/haukened/uidgen/internal/domain"
	"github.com/haukened/uidgen/internal/httpx"
	"github.com/haukened/uidgen/internal/idspace"
	"github.com/haukened/uidgen/internal/metrics"
	"github.com/haukened/uidgen/internal/resync"

	_ "github.com/mattn/go-sqlite3"
)

const shutdownTimeout = 10 * time.Second

// ensureDataDir creates dir (0700) if missing and checks that it is a directory.
func ensureDataDir(dir string) error {
	st, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
			return fmt.Errorf("create data directory %s: %w", dir, mkErr)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat data directory %s: %w", dir, err)
	case !st.IsDir():
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}

// openDatabase opens the service database and applies the metrics migrations.
func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite driver: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := metrics.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// directorySource is the directory adapter as seen by the serve command.
type directorySource interface {
	directory.Source
	directory.Pinger
}

// openDirectory returns the configured directory source and a close func.
func openDirectory(cfg *config.Config) (directorySource, func() error, error) {
	switch cfg.DirectoryKind {
	case config.DirectoryFile:
		src, err := dirfile.New(cfg.DirectoryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open directory export: %w", err)
		}
		return src, func() error { return nil }, nil
	default:
		db, err := sql.Open("sqlite3", cfg.DirectoryDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("open directory database: %w", err)
		}
		src, err := dirsqlite.New(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init directory database: %w", err)
		}
		return src, db.Close, nil
	}
}

// loadResolver decrypts the credentials file into a bearer resolver.
func loadResolver(cfg *config.Config) (*auth.Resolver, error) {
	box, err := openBox(cfg.KeyFile, false, nil)
	if err != nil {
		return nil, err
	}
	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, withExit(exitCredentials, err)
	}
	res, err := auth.NewResolver(creds, box, auth.Options{
		AllowDuplicateSecrets: cfg.AllowDuplicateSecrets,
		Logger:                slog.Default(),
	})
	if err != nil {
		return nil, withExit(exitCredentials, err)
	}
	if res.Len() == 0 {
		slog.Warn("no credentials loaded; every api request will be rejected", "domain", "auth", "file", cfg.CredentialsFile)
	}
	return res, nil
}

func buildHandler(svc *app.Service, res *auth.Resolver, mgr *metrics.Manager, src directory.Pinger, gauges ...metrics.GaugeSource) http.Handler {
	readiness := func(ctx context.Context) error {
		if !svc.Ready() {
			return errors.New("id space not initialized")
		}
		return src.Ping(ctx)
	}
	h := httpx.New(svc, res, readiness)
	h.Metrics = metrics.Handler(mgr, slog.Default(), gauges...)
	h.Recorder = mgr
	h.BuildInfo = httpx.BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
	return h.Router()
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
}

// serve wires every component and blocks until ctx is canceled or the
// listener fails.
func serve(ctx context.Context, cfg *config.Config) error {
	log := slog.Default().With("domain", "main")

	if err := ensureDataDir(cfg.DataDir); err != nil {
		return withExit(exitDataDir, err)
	}
	res, err := loadResolver(cfg)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg.SQLiteDSN())
	if err != nil {
		return withExit(exitDatabase, err)
	}
	defer db.Close()
	src, closeSrc, err := openDirectory(cfg)
	if err != nil {
		return withExit(exitDatabase, err)
	}
	defer func() { _ = closeSrc() }()

	format, err := domain.NewUIDFormat(cfg.UniqueTag, cfg.NumberOfDigits)
	if err != nil {
		return withExit(exitConfig, err)
	}

	mgr := metrics.New(db, metrics.Config{FlushInterval: cfg.MetricsFlush, Logger: slog.Default()})
	mgr.Start(ctx)
	defer mgr.Stop(context.Background())

	svc := app.New(idspace.New(format), src, mgr, cfg.MaxBatch)
	available, err := svc.Initialize(ctx)
	if err != nil {
		return withExit(exitInitialSync, fmt.Errorf("initial directory sync: %w", err))
	}
	log.Info("id space initialized", "action", "initialize", "tag", format.Tag, "digits", format.Digits, "capacity", format.Capacity(), "available", available)

	var gauges []metrics.GaugeSource
	if cfg.ResyncInterval > 0 {
		loop := resync.New(svc, resync.Config{Interval: cfg.ResyncInterval, Logger: slog.Default(), Recorder: mgr})
		loop.Start(ctx)
		defer loop.Stop()
		gauges = append(gauges, loop)
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := newServer(cfg.Addr, buildHandler(svc, res, mgr, src, gauges...))
	log.Info("starting server", "addr", ln.Addr().String(), "pid", os.Getpid(), "credentials", res.Len())
	return serveHTTP(ctx, srv, ln)
}

// serveHTTP runs srv on ln until ctx is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down", "domain", "main", "reason", context.Cause(ctx))
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
