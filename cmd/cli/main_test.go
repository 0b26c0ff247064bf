package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bundlegrid/internal/cli"
)

func TestRun_InvalidCatalog(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		unit "broken" {
			artifact = "broken.js"
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "units.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{"-catalog", filePath, "-list"})

	// --- Assert ---
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "application startup failed")
	require.Contains(t, runErr.Error(), "units.hcl")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_List(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-list", "-log-level", "error"})

	require.NoError(t, err)
	require.Contains(t, out.String(), "UNIT")
	require.Contains(t, out.String(), "browser_tests")
	require.Contains(t, out.String(), "app.platform.browser.Worker")
}
