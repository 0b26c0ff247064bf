package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/bundlegrid/internal/catalog"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/fsutil"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// Execute builds one unit against a fresh scan of the source tree.
//
// It returns one Output per unit Input. When some Inputs fail, the Outputs of
// the ones that succeeded are still returned, alongside the joined
// compile errors.
func (e *Executor) Execute(ctx context.Context, entry catalog.Entry) ([]Output, error) {
	tree, err := fsutil.Scan(e.root, e.layout)
	if err != nil {
		return nil, err
	}
	return e.executeUnit(ctx, tree, entry)
}

// BuildPlatform compiles a platform's default Inputs with default options
// only, independent of any catalog unit.
func (e *Executor) BuildPlatform(ctx context.Context, plat platform.Platform) ([]Output, error) {
	tree, err := fsutil.Scan(e.root, e.layout)
	if err != nil {
		return nil, err
	}
	ctx = ctxlog.With(ctx, "platform", plat.Key())
	files := tree.Relevant(plat)
	return e.compileInputs(ctx, plat.Key(), tree.Root, files, plat.Inputs(), func(in platform.Input) (compiler.Options, error) {
		return compiler.Defaults(plat, in.EntrySymbol), nil
	})
}

func (e *Executor) executeUnit(ctx context.Context, tree *fsutil.Tree, entry catalog.Entry) ([]Output, error) {
	u := entry.Unit
	ctx = ctxlog.With(ctx, "unit", entry.Name, "platform", u.Platform().Key())
	logger := ctxlog.FromContext(ctx)

	files := tree.Relevant(u.Platform())
	inputs := u.Inputs()
	logger.Info("▶️ Building unit", "inputs", len(inputs), "relevant_files", len(files))

	outputs, err := e.compileInputs(ctx, entry.Name, tree.Root, files, inputs, func(in platform.Input) (compiler.Options, error) {
		return e.catalog.Options(u, in)
	})
	if err != nil {
		logger.Error("Unit failed.", "failed_inputs", len(inputs)-len(outputs), "error", err)
		return outputs, err
	}
	logger.Info("✅ Unit built", "outputs", len(outputs))
	return outputs, nil
}

// compileInputs compiles every Input concurrently. The returned slice keeps
// Input order and holds only successful Outputs.
func (e *Executor) compileInputs(
	ctx context.Context,
	unitName, root string,
	files []string,
	inputs []platform.Input,
	optionsFor func(platform.Input) (compiler.Options, error),
) ([]Output, error) {
	results := make([]*Output, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		g.Go(func() error {
			opts, err := optionsFor(in)
			if err != nil {
				errs[i] = fmt.Errorf("options for %s: %w", in.ArtifactName, err)
				return nil
			}
			out, err := e.compileInput(ctx, unitName, root, files, in, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	outputs := make([]Output, 0, len(inputs))
	for _, out := range results {
		if out != nil {
			outputs = append(outputs, *out)
		}
	}
	return outputs, errors.Join(errs...)
}

func (e *Executor) compileInput(
	ctx context.Context,
	unitName, root string,
	files []string,
	in platform.Input,
	opts compiler.Options,
) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("artifact", in.ArtifactName, "entry", in.EntrySymbol)

	req := compiler.Request{
		Dir:         root,
		Files:       files,
		EntrySymbol: in.EntrySymbol,
		Options:     opts,
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Debug("Resolved compiler request.", "request", spew.Sdump(req))
	}

	start := time.Now()
	compiled, err := e.compiler.Compile(ctx, req)
	elapsed := time.Since(start)
	e.observer.ObserveCompile(unitName, in.ArtifactName, len(files), len(compiled), elapsed, err)

	if err != nil {
		logger.Error("Compilation failed.", "duration", elapsed, "error", err)
		return nil, &compiler.CompileError{
			Unit:        unitName,
			Artifact:    in.ArtifactName,
			EntrySymbol: in.EntrySymbol,
			FileCount:   len(files),
			Err:         err,
		}
	}
	logger.Debug("Compilation succeeded.", "duration", elapsed, "bytes", len(compiled))
	return &Output{
		Unit:         unitName,
		ArtifactName: in.ArtifactName,
		EntrySymbol:  in.EntrySymbol,
		Files:        len(files),
		Bytes:        compiled,
	}, nil
}
