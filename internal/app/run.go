package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/bundlegrid/internal/catalog"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/watch"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.List {
		return a.list()
	}

	entries, err := a.catalog.Select(a.config.Units...)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.logger.Warn("Catalog is empty, nothing to build.")
		return nil
	}

	if a.config.Ops.Port > 0 {
		a.startOpsServer(ctx, a.config.Ops.Port)
	}

	buildErr := a.Build(ctx, entries)
	if !a.config.Watch {
		a.logger.Debug("App.Run method finished.")
		return buildErr
	}

	w := watch.New(a.config.SourceRoot, a.layout.Extension)
	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		return a.Build(ctx, a.affected(entries, changed))
	})
	a.logger.Debug("App.Run method finished.")
	return err
}

// Build runs one batch and then writes, records and announces its outputs.
// Outputs of successful units are written even when other units failed.
func (a *App) Build(ctx context.Context, entries []catalog.Entry) error {
	logger := ctxlog.FromContext(ctx)
	if len(entries) == 0 {
		logger.Info("No unit is affected by the change.")
		return nil
	}

	batch, buildErr := a.executor.Run(ctx, entries)
	a.lastBatch.Store(batch)

	paths, writeErr := a.writer.WriteAll(ctx, batch.Outputs())
	logger.Info("📦 Artifacts written", "count", len(paths), "dir", a.config.OutDir)

	if a.history != nil {
		if err := a.history.RecordBatch(ctx, batch); err != nil {
			logger.Warn("Failed to record build history.", "error", err)
		}
	}
	if err := a.notifier.Notify(ctx, batch); err != nil {
		logger.Warn("Failed to notify listeners.", "error", err)
	}

	err := errors.Join(buildErr, writeErr)
	if err == nil {
		return nil
	}
	if failed := batch.Failed(); len(failed) > 0 {
		return fmt.Errorf("build failed for %s: %w", strings.Join(failed, ", "), err)
	}
	return fmt.Errorf("build failed: %w", err)
}

// affected narrows entries to the units whose platform sees at least one of
// the changed files.
func (a *App) affected(entries []catalog.Entry, changed []string) []catalog.Entry {
	var out []catalog.Entry
	for _, e := range entries {
		for _, p := range changed {
			if a.layout.Relevant(p, e.Unit.Platform()) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// list prints the catalog as a table.
func (a *App) list() error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tPLATFORM\tENTRY POINT\tENTRY SYMBOL\tARTIFACTS")
	for _, e := range a.catalog.Entries() {
		var artifacts []string
		for _, in := range e.Unit.Inputs() {
			artifacts = append(artifacts, in.ArtifactName)
		}
		ep := e.Unit.EntryPoint()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Unit.Platform().Key(), ep.Key(), ep.Symbol(), strings.Join(artifacts, ", "))
	}
	return tw.Flush()
}
