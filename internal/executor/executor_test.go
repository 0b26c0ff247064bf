package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bundlegrid/internal/catalog"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/fsutil"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

func writeSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{
		"lib/common.js",
		"src/core/pair.js",
		"src/platform/dispatch.js",
		"src/platform/browser/client.js",
		"src/platform/mobile/port.js",
		"src/platform/server/node.js",
	} {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("// "+f+"\n"), 0o644))
	}
	return root
}

// recorder is a fake compiler that echoes the entry symbol and records every
// request it sees.
type recorder struct {
	mu       sync.Mutex
	requests []compiler.Request
	fail     func(compiler.Request) error
}

func (r *recorder) Compile(_ context.Context, req compiler.Request) ([]byte, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.fail != nil {
		if err := r.fail(req); err != nil {
			return nil, err
		}
	}
	return []byte("compiled:" + req.EntrySymbol), nil
}

func (r *recorder) byEntry(symbol string) (compiler.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.EntrySymbol == symbol {
			return req, true
		}
	}
	return compiler.Request{}, false
}

type countingObserver struct {
	compiles atomic.Int32
	failures atomic.Int32
	batches  atomic.Int32
}

func (o *countingObserver) ObserveCompile(_, _ string, _, _ int, _ time.Duration, err error) {
	o.compiles.Add(1)
	if err != nil {
		o.failures.Add(1)
	}
}

func (o *countingObserver) ObserveBatch(time.Duration, error) { o.batches.Add(1) }

func entry(t *testing.T, names ...string) []catalog.Entry {
	t.Helper()
	entries, err := catalog.Default().Select(names...)
	require.NoError(t, err)
	return entries
}

func TestExecute_MobileUnit(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), rec)

	outputs, err := ex.Execute(ctx, entry(t, catalog.MobileRepl)[0])
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "mobile.js", outputs[0].ArtifactName)
	assert.Equal(t, "compiled:app.platform.mobile.main", string(outputs[0].Bytes))

	req, ok := rec.byEntry("app.platform.mobile.main")
	require.True(t, ok)
	assert.Equal(t, []string{
		"lib/common.js",
		"src/core/pair.js",
		"src/platform/dispatch.js",
		"src/platform/mobile/port.js",
	}, req.Files)
	platformDefine, _ := req.Options.Define(compiler.PlatformDefine)
	assert.Equal(t, "mobile", platformDefine)
}

func TestExecute_BrowserUnitProducesWorkerCompanion(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), rec)

	outputs, err := ex.Execute(ctx, entry(t, catalog.BrowserTests)[0])
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "browser-tests.js", outputs[0].ArtifactName)
	assert.Equal(t, "browser-tests-worker.js", outputs[1].ArtifactName)

	req, ok := rec.byEntry("app.test.main")
	require.True(t, ok)
	worker, _ := req.Options.Define(catalog.WorkerScriptDefine)
	assert.Equal(t, outputs[1].ArtifactName, worker, "the client must load the worker built with it")
	for _, f := range req.Files {
		assert.NotContains(t, f, "platform/mobile")
	}
}

func TestExecute_BrowserWorkerUnitYieldsOneOutputPerPlatformInput(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), &recorder{})

	outputs, err := ex.Execute(ctx, entry(t, catalog.BrowserWorker)[0])
	require.NoError(t, err)
	require.Len(t, outputs, len(platform.Browser.Inputs()))
	assert.Equal(t, "worker.js", outputs[0].ArtifactName)
	assert.Equal(t, "worker-worker.js", outputs[1].ArtifactName)
}

func TestExecute_DebugLogShowsResolvedRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), &recorder{})

	_, err := ex.Execute(ctx, entry(t, catalog.MobileRepl)[0])
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Resolved compiler request.")
	assert.Contains(t, buf.String(), "src/platform/mobile/port.js")
	assert.Contains(t, buf.String(), "app.platform.mobile.main")
}

func TestExecute_OneFailingInputDoesNotBlockTheOther(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{fail: func(req compiler.Request) error {
		if req.EntrySymbol == "app.platform.browser.Worker" {
			return errors.New("syntax error")
		}
		return nil
	}}
	obs := &countingObserver{}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), rec, WithObserver(obs))

	outputs, err := ex.Execute(ctx, entry(t, catalog.BrowserTests)[0])
	require.Error(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "browser-tests.js", outputs[0].ArtifactName)

	var compileErr *compiler.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, catalog.BrowserTests, compileErr.Unit)
	assert.Equal(t, "browser-tests-worker.js", compileErr.Artifact)
	assert.Contains(t, err.Error(), "syntax error")

	assert.EqualValues(t, 2, obs.compiles.Load())
	assert.EqualValues(t, 1, obs.failures.Load())
}

func TestExecute_MissingSourceRoot(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	ex := New(catalog.Default(), t.TempDir(), platform.DefaultLayout(), &recorder{})

	_, err := ex.Execute(ctx, entry(t, catalog.ServerRepl)[0])
	require.ErrorIs(t, err, fsutil.ErrRootMissing)
}

func TestBuildPlatform(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), rec)

	outputs, err := ex.BuildPlatform(ctx, platform.Browser)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "browser.js", outputs[0].ArtifactName)
	assert.Equal(t, "worker.js", outputs[1].ArtifactName)

	req, ok := rec.byEntry("app.platform.browser.Worker")
	require.True(t, ok)
	_, hasWorkerDefine := req.Options.Define(catalog.WorkerScriptDefine)
	assert.False(t, hasWorkerDefine)
}

func TestRun_AllUnits(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	obs := &countingObserver{}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), &recorder{},
		WithWorkers(3), WithObserver(obs))

	batch, err := ex.Run(ctx, catalog.Default().Entries())
	require.NoError(t, err)
	assert.NotEmpty(t, batch.ID)
	assert.Empty(t, batch.Failed())
	require.Len(t, batch.Results, catalog.Default().Len())
	for i, name := range catalog.Default().Names() {
		assert.Equal(t, name, batch.Results[i].Unit)
	}

	names := map[string]bool{}
	for _, out := range batch.Outputs() {
		assert.False(t, names[out.ArtifactName], "duplicate artifact %s", out.ArtifactName)
		names[out.ArtifactName] = true
	}
	assert.True(t, names["worker.js"])
	assert.True(t, names["browser-repl-worker.js"])
	assert.EqualValues(t, 1, obs.batches.Load())
}

func TestRun_FailureIsReportedPerUnit(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{fail: func(req compiler.Request) error {
		for _, f := range req.Files {
			if strings.Contains(f, "platform/server") {
				return errors.New("server code broken")
			}
		}
		return nil
	}}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), rec, WithWorkers(2))

	batch, err := ex.Run(ctx, entry(t, catalog.ServerTests, catalog.MobileTests))
	require.Error(t, err)
	assert.Equal(t, []string{catalog.ServerTests}, batch.Failed())
	require.Len(t, batch.Outputs(), 1)
	assert.Equal(t, "mobile-tests.js", batch.Outputs()[0].ArtifactName)
}

func TestRun_FailFastSkipsRemainingUnits(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	rec := &recorder{fail: func(compiler.Request) error { return errors.New("boom") }}
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), rec,
		WithWorkers(1), WithFailFast(true))

	batch, err := ex.Run(ctx, entry(t, catalog.MobileRepl, catalog.ServerRepl, catalog.EmbeddedTests))
	require.Error(t, err)
	assert.ErrorIs(t, batch.Results[1].Err, ErrSkipped)
	assert.ErrorIs(t, batch.Results[2].Err, ErrSkipped)
	assert.Len(t, rec.requests, 1)
}

func TestRun_FailFastLetsRunningUnitsFinish(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	serverStarted := make(chan struct{})
	comp := compiler.Func(func(ctx context.Context, req compiler.Request) ([]byte, error) {
		if req.EntrySymbol == entrypointSymbol(catalog.ServerRepl) {
			close(serverStarted)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(200 * time.Millisecond):
				return []byte("server"), nil
			}
		}
		<-serverStarted
		return nil, errors.New("mobile broken")
	})
	ex := New(catalog.Default(), writeSourceTree(t), platform.DefaultLayout(), comp,
		WithWorkers(2), WithFailFast(true))

	batch, err := ex.Run(ctx, entry(t, catalog.ServerRepl, catalog.MobileRepl, catalog.EmbeddedTests))
	require.Error(t, err)
	require.NoError(t, batch.Results[0].Err, "a running unit must not be cancelled by fail-fast")
	assert.Len(t, batch.Results[0].Outputs, 1)
	assert.ErrorContains(t, batch.Results[1].Err, "mobile broken")
	assert.ErrorIs(t, batch.Results[2].Err, ErrSkipped)
}

func entrypointSymbol(unitName string) string {
	u, _ := catalog.Default().Unit(unitName)
	return u.EntryPoint().Symbol()
}

func TestRun_ScanFailureFailsEveryUnit(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	ex := New(catalog.Default(), filepath.Join(t.TempDir(), "nope"), platform.DefaultLayout(), &recorder{})

	batch, err := ex.Run(ctx, entry(t, catalog.MobileRepl, catalog.ServerRepl))
	require.ErrorIs(t, err, fsutil.ErrRootMissing)
	assert.Len(t, batch.Failed(), 2)
}

func TestWithWorkers_IgnoresNonPositive(t *testing.T) {
	ex := New(catalog.Default(), "", platform.DefaultLayout(), &recorder{}, WithWorkers(0))
	assert.Positive(t, ex.Workers())
	ex = New(catalog.Default(), "", platform.DefaultLayout(), &recorder{}, WithWorkers(4))
	assert.Equal(t, 4, ex.Workers())
}
