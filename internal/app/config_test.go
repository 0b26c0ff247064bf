package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bundlegrid/internal/platform"
)

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("BUNDLEGRID_TEST_JAR", "/opt/closure/compiler.jar")
	p := filepath.Join(t.TempDir(), "bundlegrid.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
source: ./app
units: [browser_tests, browser_worker]
workers: 4
fail_fast: true
layout:
  library_root: closure-library
compiler:
  jar: ${BUNDLEGRID_TEST_JAR}
notify:
  url: http://localhost:3000/socket.io/
  timeout: 2s
`), 0o644))

	got, err := LoadConfigFile(p, DefaultConfig())
	require.NoError(t, err)

	want := DefaultConfig()
	want.SourceRoot = "./app"
	want.Units = []string{"browser_tests", "browser_worker"}
	want.WorkerCount = 4
	want.FailFast = true
	want.Layout = platform.Layout{Extension: ".js", LibraryRoot: "closure-library", SourceRoot: "src", PlatformDir: "platform"}
	want.Compiler.Jar = "/opt/closure/compiler.jar"
	want.Notify = NotifyConfig{URL: "http://localhost:3000/socket.io/", Timeout: 2 * time.Second}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfigFile() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig())
	assert.ErrorContains(t, err, "read config")

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("no_such_option: 1\n"), 0o644))
	_, err = LoadConfigFile(p, DefaultConfig())
	assert.ErrorContains(t, err, "no_such_option")
}

func TestLoadConfigFile_Empty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	got, err := LoadConfigFile(p, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)
}

func TestNewConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "DEBUG"
	cfg.LogFormat = "JSON"
	got, err := NewConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, "json", got.LogFormat)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty source", func(c *Config) { c.SourceRoot = "" }, "source is a required"},
		{"empty out", func(c *Config) { c.OutDir = "" }, "out is a required"},
		{"negative workers", func(c *Config) { c.WorkerCount = -1 }, "workers must not be negative"},
		{"bad port", func(c *Config) { c.Ops.Port = 70000 }, "ops port out of range"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log-format"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "invalid log-level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := NewConfig(cfg)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}

	listOnly := DefaultConfig()
	listOnly.OutDir = ""
	listOnly.List = true
	_, err = NewConfig(listOnly)
	assert.NoError(t, err)
}
