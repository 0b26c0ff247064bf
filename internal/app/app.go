package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/bundlegrid/internal/artifact"
	"github.com/specialistvlad/bundlegrid/internal/catalog"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/compiler/closure"
	"github.com/specialistvlad/bundlegrid/internal/config"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/executor"
	"github.com/specialistvlad/bundlegrid/internal/history"
	"github.com/specialistvlad/bundlegrid/internal/metrics"
	"github.com/specialistvlad/bundlegrid/internal/notify"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	catalog  *catalog.Catalog
	layout   platform.Layout
	executor *executor.Executor
	writer   *artifact.Writer
	metrics  *metrics.Metrics
	history  *history.Store
	notifier notify.Notifier

	opsServer *http.Server
	lastBatch atomic.Pointer[executor.Batch]
}

// Option customizes NewApp, mainly for tests.
type Option func(*options)

type options struct {
	compiler compiler.Compiler
	notifier notify.Notifier
}

// WithCompiler replaces the external compiler.
func WithCompiler(c compiler.Compiler) Option {
	return func(o *options) { o.compiler = c }
}

// WithNotifier replaces the notifier built from NotifyConfig.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// NewApp is the constructor for the main application. It loads the catalog
// (built-in or from cfg.CatalogPath through loader), resolves the source
// layout and wires the executor, writer, metrics, history and notifier.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cat, layout, err := loadCatalog(ctx, cfg, loader)
	if err != nil {
		return nil, err
	}
	logger.Debug("Catalog ready.", "units", cat.Len(), "layout", layout)

	comp := o.compiler
	if comp == nil {
		cc := closure.New(cfg.Compiler.Java, cfg.Compiler.Jar)
		cc.ExtraArgs = cfg.Compiler.ExtraArgs
		comp = cc
	}

	m := metrics.New("")
	a := &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		catalog: cat,
		layout:  layout,
		executor: executor.New(cat, cfg.SourceRoot, layout, comp,
			executor.WithWorkers(cfg.WorkerCount),
			executor.WithFailFast(cfg.FailFast),
			executor.WithObserver(m),
		),
		writer:   artifact.NewWriter(cfg.OutDir),
		metrics:  m,
		notifier: o.notifier,
	}

	if a.notifier == nil {
		a.notifier = notify.Nop{}
		if cfg.Notify.URL != "" {
			n := notify.NewSocketIO(cfg.Notify.URL)
			if cfg.Notify.Timeout > 0 {
				n.Timeout = cfg.Notify.Timeout
			}
			a.notifier = n
		}
	}

	if cfg.History.DB != "" {
		store, err := history.Open(cfg.History.DB)
		if err != nil {
			return nil, err
		}
		a.history = store
	}

	return a, nil
}

// loadCatalog returns the built-in catalog, or the one declared in
// cfg.CatalogPath, together with the effective layout.
func loadCatalog(ctx context.Context, cfg *Config, loader config.Loader) (*catalog.Catalog, platform.Layout, error) {
	layout := cfg.Layout
	if cfg.CatalogPath == "" {
		if err := layout.Validate(); err != nil {
			return nil, layout, fmt.Errorf("invalid layout: %w", err)
		}
		return catalog.Default(), layout, nil
	}

	model, conv, err := loader.Load(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, layout, fmt.Errorf("failed to load catalog: %w", err)
	}
	cat, err := catalog.FromModel(model, conv)
	if err != nil {
		return nil, layout, fmt.Errorf("invalid catalog %s: %w", cfg.CatalogPath, err)
	}

	if l := model.Layout; l != nil {
		override := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		override(&layout.Extension, l.Extension)
		override(&layout.LibraryRoot, l.LibraryRoot)
		override(&layout.SourceRoot, l.SourceRoot)
		override(&layout.PlatformDir, l.PlatformDir)
	}
	if err := layout.Validate(); err != nil {
		return nil, layout, fmt.Errorf("invalid layout: %w", err)
	}
	return cat, layout, nil
}

// Catalog returns the application's catalog. This is primarily for testing.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Metrics returns the application's metrics. This is primarily for testing.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// LastBatch returns the most recent batch, or nil before the first build.
func (a *App) LastBatch() *executor.Batch {
	return a.lastBatch.Load()
}

// Close releases the history store and stops the ops server.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.closeOpsServer(ctx); err != nil {
		firstErr = err
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
