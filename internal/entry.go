// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/timeshift/internal/api"
	"github.com/starford/timeshift/internal/audit"
	"github.com/starford/timeshift/internal/mcpserver"
	"github.com/starford/timeshift/internal/metrics"
	"github.com/starford/timeshift/internal/notion"
	"github.com/starford/timeshift/internal/presets"
	"github.com/starford/timeshift/internal/runservice"
	"github.com/starford/timeshift/internal/shift"
	"github.com/starford/timeshift/internal/sse"
)

// components is everything a command needs, built from one Config.
type components struct {
	logger  *slog.Logger
	db      *audit.DB
	presets *presets.Store
	broker  *sse.Broker
	metrics *metrics.Metrics
	svc     *runservice.Service

	closers []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger, teeing into the configured log file.
func newLogger(cfg *Config, w io.Writer) (*slog.Logger, func() error, error) {
	closeFn := func() error { return nil }
	if cfg.App.LogFile != "" {
		f, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(w, f)
		closeFn = f.Close
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	return logger, closeFn, nil
}

// build wires the engine and its collaborators. logOut receives log lines.
func build(app *application, logOut io.Writer) (*components, error) {
	cfg := app.config

	logger, closeLog, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	c := &components{logger: logger, closers: []func() error{closeLog}}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("database_id", cfg.Notion.DatabaseID),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("presets_path", cfg.Presets.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := audit.Open(cfg.SQLite.Path)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init audit log: %w", err)
	}
	c.db = db
	c.closers = append(c.closers, db.Close)

	c.presets = presets.NewStore(cfg.Presets.Path)
	if err := c.presets.Load(); err != nil {
		logger.Warn("presets: initial load failed", slog.String("error", err.Error()))
	}

	c.broker = sse.NewBroker(cfg.Events.ProgressThrottle)
	c.closers = append(c.closers, func() error { c.broker.Close(); return nil })
	c.metrics = metrics.New()

	client := notion.NewClient(cfg.Notion.ClientOptions())
	engine := shift.NewEngine(client, cfg.Notion.EngineSettings(), logger)

	c.svc = runservice.NewService(engine, runservice.Deps{
		Audit:   db,
		Broker:  c.broker,
		Metrics: c.metrics,
		Presets: c.presets,
		Logger:  logger,
	})
	return c, nil
}

// Run starts the HTTP service and blocks until a shutdown signal or ctx is done.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := build(app, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", c.metrics.Handler())
	api.Register(r, c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Presets.Watch && cfg.Presets.Path != "" {
		g.Go(func() error {
			if err := c.presets.Watch(gCtx, logger, nil); err != nil {
				logger.Warn("presets: watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunAdjust performs a single adjustment and prints its summary. A failed run is
// returned as an error so the process exits non-zero.
func RunAdjust(ctx context.Context, req runservice.Request, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.svc.Adjust(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	fmt.Fprintln(app.out, resp.Message)
	if resp.Warning != "" {
		fmt.Fprintln(app.out, "Warning: "+resp.Warning)
	}
	return nil
}

// RunProperties prints the filterable properties of the database.
func RunProperties(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	props, err := c.svc.Properties(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tFILTERABLE")
	for _, p := range props {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", p.Name, p.Type, p.Type.Supported())
	}
	return tw.Flush()
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := build(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.Close()

	return mcpserver.New(c.svc, app.version).ServeStdio()
}
