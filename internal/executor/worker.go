package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/specialistvlad/bundlegrid/internal/catalog"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/fsutil"
)

// ErrSkipped marks a unit that never started because the batch was cancelled.
var ErrSkipped = errors.New("skipped")

// Result is the outcome of building one unit in a batch.
type Result struct {
	Unit     string
	Outputs  []Output
	Err      error
	Duration time.Duration
}

// Batch is the outcome of one Run.
type Batch struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	// Results follow the order of the requested entries.
	Results []Result
}

// Outputs returns every successful Output across the batch.
func (b *Batch) Outputs() []Output {
	var out []Output
	for _, r := range b.Results {
		out = append(out, r.Outputs...)
	}
	return out
}

// Failed returns the names of units that produced an error.
func (b *Batch) Failed() []string {
	var names []string
	for _, r := range b.Results {
		if r.Err != nil {
			names = append(names, r.Unit)
		}
	}
	return names
}

type job struct {
	index int
	entry catalog.Entry
}

// Run builds entries on a pool of workers and returns the Batch together with
// the joined errors of all failed units. The source tree is scanned once and
// shared read-only by every worker.
func (e *Executor) Run(ctx context.Context, entries []catalog.Entry) (*Batch, error) {
	batch := &Batch{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Results: make([]Result, len(entries)),
	}
	ctx = ctxlog.With(ctx, "batch", batch.ID)
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Starting build batch", "units", len(entries), "workers", e.numWorkers)

	tree, scanErr := fsutil.Scan(e.root, e.layout)
	if scanErr != nil {
		logger.Error("Source tree scan failed.", "error", scanErr)
		for i, entry := range entries {
			batch.Results[i] = Result{Unit: entry.Name, Err: scanErr}
		}
		return e.finish(ctx, batch)
	}

	// FailFast cancels only scheduling. Units already compiling keep ctx and
	// finish; ctx itself still ends them on process-level cancellation.
	sched, stopScheduling := context.WithCancel(ctx)
	defer stopScheduling()

	jobs := make(chan job)
	var wg sync.WaitGroup
	workers := min(e.numWorkers, max(len(entries), 1))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.worker(ctx, sched, tree, jobs, batch.Results, stopScheduling, i, &wg)
	}

	for i, entry := range entries {
		jobs <- job{index: i, entry: entry}
	}
	close(jobs)
	wg.Wait()

	return e.finish(ctx, batch)
}

// worker is the processing loop for a single concurrent worker. Each job
// writes only its own slot in results.
func (e *Executor) worker(
	ctx, sched context.Context,
	tree *fsutil.Tree,
	jobs <-chan job,
	results []Result,
	stopScheduling context.CancelFunc,
	workerID int,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range jobs {
		if sched.Err() != nil {
			results[j.index] = Result{Unit: j.entry.Name, Err: fmt.Errorf("unit %s: %w", j.entry.Name, ErrSkipped)}
			continue
		}

		logger.Debug("Worker picked up unit.", "workerID", workerID, "unit", j.entry.Name)
		start := time.Now()
		outputs, err := e.executeUnit(ctx, tree, j.entry)
		results[j.index] = Result{
			Unit:     j.entry.Name,
			Outputs:  outputs,
			Err:      err,
			Duration: time.Since(start),
		}
		if err != nil && e.failFast {
			stopScheduling()
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (e *Executor) finish(ctx context.Context, batch *Batch) (*Batch, error) {
	batch.Duration = time.Since(batch.Started)

	errs := make([]error, 0, len(batch.Results))
	for _, r := range batch.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	err := errors.Join(errs...)
	e.observer.ObserveBatch(batch.Duration, err)

	logger := ctxlog.FromContext(ctx)
	if err != nil {
		logger.Error("Build batch finished with failures.", "failed", len(errs), "duration", batch.Duration)
		return batch, err
	}
	logger.Info("🏁 Build batch finished", "artifacts", len(batch.Outputs()), "duration", batch.Duration)
	return batch, nil
}
