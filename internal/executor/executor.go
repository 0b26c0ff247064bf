// Package executor realizes compilation units into artifacts by handing each
// unit Input to the external compiler. Units in a batch, and the Inputs of a
// unit, compile concurrently: they share only the read-only catalog and
// source tree, so no build waits on another.
package executor

import (
	"runtime"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/catalog"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// Observer receives build measurements. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCompile(unitName, artifact string, files, size int, d time.Duration, err error)
	ObserveBatch(d time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveCompile(string, string, int, int, time.Duration, error) {}
func (noopObserver) ObserveBatch(time.Duration, error)                             {}

// Output is the compiled artifact for one unit Input.
type Output struct {
	Unit         string
	ArtifactName string
	EntrySymbol  string
	// Files is the size of the relevant file set the artifact was built from.
	Files int
	Bytes []byte
}

// Executor builds units from one catalog against one source tree.
type Executor struct {
	catalog    *catalog.Catalog
	root       string
	layout     platform.Layout
	compiler   compiler.Compiler
	numWorkers int
	failFast   bool
	observer   Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds how many units build at once. Values below one mean
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.numWorkers = n
		}
	}
}

// WithFailFast stops scheduling further units after the first failure.
func WithFailFast(enabled bool) Option {
	return func(e *Executor) { e.failFast = enabled }
}

// WithObserver reports measurements to o.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

// New creates an Executor for the source tree at root.
func New(cat *catalog.Catalog, root string, layout platform.Layout, comp compiler.Compiler, opts ...Option) *Executor {
	e := &Executor{
		catalog:    cat,
		root:       root,
		layout:     layout,
		compiler:   comp,
		numWorkers: runtime.NumCPU(),
		observer:   noopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the worker pool size.
func (e *Executor) Workers() int { return e.numWorkers }
