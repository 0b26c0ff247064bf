package unit

import (
	"errors"
	"testing"

	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
	"github.com/specialistvlad/bundlegrid/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	u, err := Of("server-tests.js", platform.Server).
		EntryPoint(entrypoint.TestMain).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "server-tests.js", u.ArtifactName())
	assert.Equal(t, platform.Server, u.Platform())
	assert.Equal(t, entrypoint.TestMain, u.EntryPoint())
	assert.Empty(t, u.Transforms())
	assert.Empty(t, u.Refs())
}

func TestBuilder_ConfigurationErrors(t *testing.T) {
	testCases := []struct {
		name string
		b    *Builder
		kind error
	}{
		{
			name: "missing entry point",
			b:    Of("a.js", platform.Mobile),
			kind: ErrMissingEntryPoint,
		},
		{
			name: "empty artifact",
			b:    Of("  ", platform.Mobile).EntryPoint(entrypoint.TestMain),
			kind: ErrEmptyArtifact,
		},
		{
			name: "invalid platform",
			b:    Of("a.js", platform.Invalid).EntryPoint(entrypoint.TestMain),
			kind: ErrUnknownPlatform,
		},
		{
			name: "invalid entry point",
			b:    Of("a.js", platform.Mobile).EntryPoint(entrypoint.Invalid),
			kind: ErrUnknownEntryPoint,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			require.ErrorIs(t, err, tc.kind)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestBuilder_BuildTwice(t *testing.T) {
	b := Of("a.js", platform.Mobile).EntryPoint(entrypoint.TestMain)
	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	require.ErrorIs(t, err, ErrBuilderReused)
}

func TestBuilder_ReuseAfterFailure(t *testing.T) {
	b := Of("a.js", platform.Mobile)
	_, err := b.Build()
	require.ErrorIs(t, err, ErrMissingEntryPoint)

	_, err = b.EntryPoint(entrypoint.TestMain).Build()
	require.ErrorIs(t, err, ErrBuilderReused)
}

func TestBuilder_UnitIsImmutable(t *testing.T) {
	b := Of("a.js", platform.Browser).
		EntryPoint(entrypoint.TestMain).
		CustomCompilerOptions(Flag("x", "1"))
	u, err := b.Build()
	require.NoError(t, err)

	// Mutating the builder after Build must not reach the unit.
	b.CustomCompilerOptions(Flag("y", "2"))
	require.Len(t, u.Transforms(), 1)

	// Nor must mutating the returned slice.
	ts := u.Transforms()
	ts[0] = Flag("z", "3")
	assert.Equal(t, "flag x=1", u.Transforms()[0].Name)
}

func TestMustBuild_Panics(t *testing.T) {
	require.Panics(t, func() { Of("a.js", platform.Mobile).MustBuild() })
}

func TestInputs(t *testing.T) {
	t.Run("single input platform", func(t *testing.T) {
		u := Of("server-repl.js", platform.Server).EntryPoint(entrypoint.ServerReplMain).MustBuild()
		assert.Equal(t, []platform.Input{
			{ArtifactName: "server-repl.js", EntrySymbol: entrypoint.ServerReplMain.Symbol()},
		}, u.Inputs())
	})

	t.Run("companion input is renamed", func(t *testing.T) {
		u := Of("browser-tests.js", platform.Browser).EntryPoint(entrypoint.TestMain).MustBuild()
		assert.Equal(t, []platform.Input{
			{ArtifactName: "browser-tests.js", EntrySymbol: entrypoint.TestMain.Symbol()},
			{ArtifactName: "browser-tests-worker.js", EntrySymbol: entrypoint.BrowserWorker.Symbol()},
		}, u.Inputs())
	})

	t.Run("one input per platform input even when entry symbols repeat", func(t *testing.T) {
		u := Of("worker.js", platform.Browser).EntryPoint(entrypoint.BrowserWorker).MustBuild()
		assert.Equal(t, []platform.Input{
			{ArtifactName: "worker.js", EntrySymbol: entrypoint.BrowserWorker.Symbol()},
			{ArtifactName: "worker-worker.js", EntrySymbol: entrypoint.BrowserWorker.Symbol()},
		}, u.Inputs())
		assert.Len(t, u.Inputs(), len(platform.Browser.Inputs()))
	})
}

func TestRefs_Deduplicated(t *testing.T) {
	u := Of("a.js", platform.Browser).
		EntryPoint(entrypoint.TestMain).
		CustomCompilerOptions(
			DefineArtifactOf("A", "worker"),
			DefineString("B", "b"),
			DefineArtifactOf("C", "worker"),
			DefineArtifactOf("D", "other"),
		).
		MustBuild()
	assert.Equal(t, []string{"worker", "other"}, u.Refs())
}

func TestApplyAll(t *testing.T) {
	lookup := Scope{Artifact: func(name string) (string, bool) {
		if name == "browser_worker" {
			return "worker.js", true
		}
		return "", false
	}}
	defaults := compiler.Defaults(platform.Browser, entrypoint.TestMain.Symbol())

	opts, err := ApplyAll(defaults, lookup,
		DefineArtifactOf("WORKER_SCRIPT", "browser_worker"),
		DefineString("MODE", "test"),
		Flag("compilation_level", "SIMPLE"),
	)
	require.NoError(t, err)

	v, ok := opts.Define("WORKER_SCRIPT")
	require.True(t, ok)
	assert.Equal(t, "worker.js", v)
	assert.Equal(t, "test", opts.Defines["MODE"])
	assert.Equal(t, "SIMPLE", opts.Flags["compilation_level"])
	assert.Equal(t, "ADVANCED", defaults.Flags["compilation_level"], "defaults must not be mutated")

	_, err = ApplyAll(defaults, lookup, DefineArtifactOf("X", "missing"))
	require.ErrorIs(t, err, ErrUnknownReference)

	boom := errors.New("boom")
	_, err = ApplyAll(defaults, lookup, Transform{
		Name:  "failing",
		Apply: func(*compiler.Options, Scope) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `transform "failing"`)
}

func TestDefineCompanionArtifact(t *testing.T) {
	u := Of("browser-tests.js", platform.Browser).
		EntryPoint(entrypoint.TestMain).
		CustomCompilerOptions(DefineCompanionArtifact("WORKER_SCRIPT", entrypoint.BrowserWorker)).
		MustBuild()
	assert.Empty(t, u.Refs())

	scope := Scope{Inputs: u.Inputs()}
	for _, in := range u.Inputs() {
		opts, err := ApplyAll(compiler.Defaults(platform.Browser, in.EntrySymbol), scope, u.Transforms()...)
		require.NoError(t, err)
		v, ok := opts.Define("WORKER_SCRIPT")
		require.True(t, ok)
		assert.Equal(t, "browser-tests-worker.js", v)
	}

	mobile := Of("mobile.js", platform.Mobile).EntryPoint(entrypoint.MobileMain).MustBuild()
	_, err := ApplyAll(compiler.Defaults(platform.Mobile, entrypoint.MobileMain.Symbol()),
		Scope{Inputs: mobile.Inputs()},
		DefineCompanionArtifact("WORKER_SCRIPT", entrypoint.BrowserWorker))
	require.ErrorIs(t, err, ErrUnknownReference)
}
