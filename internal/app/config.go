package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// Config holds all the necessary configuration for an App instance to run.
// It can be read from a YAML file; command-line flags override file values.
type Config struct {
	SourceRoot  string   `yaml:"source"`
	OutDir      string   `yaml:"out"`
	CatalogPath string   `yaml:"catalog"` // hcl file or directory; empty means the built-in catalog
	Units       []string `yaml:"units"`   // empty means every unit

	WorkerCount int  `yaml:"workers"`
	FailFast    bool `yaml:"fail_fast"`
	Watch       bool `yaml:"watch"`
	List        bool `yaml:"-"`

	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`

	// Layout starts from platform.DefaultLayout; a layout block in the
	// catalog file overrides it.
	Layout   platform.Layout `yaml:"layout"`
	Compiler CompilerConfig  `yaml:"compiler"`
	Ops      OpsConfig       `yaml:"ops"`
	History  HistoryConfig   `yaml:"history"`
	Notify   NotifyConfig    `yaml:"notify"`
}

// CompilerConfig locates the external compiler.
type CompilerConfig struct {
	Java      string   `yaml:"java"`
	Jar       string   `yaml:"jar"`
	ExtraArgs []string `yaml:"extra_args"`
}

// OpsConfig configures the operational HTTP server.
type OpsConfig struct {
	Port int `yaml:"port"` // 0 disables the server
}

// HistoryConfig configures the build history store.
type HistoryConfig struct {
	DB string `yaml:"db"` // empty disables history
}

// NotifyConfig configures the live-reload notifier.
type NotifyConfig struct {
	URL     string        `yaml:"url"` // empty disables notifications
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the values used when neither a file nor a flag sets
// an option.
func DefaultConfig() Config {
	return Config{
		SourceRoot:  ".",
		OutDir:      "out",
		WorkerCount: 0,
		LogFormat:   "text",
		LogLevel:    "info",
		Layout:      platform.DefaultLayout(),
		Compiler:    CompilerConfig{Java: "java"},
	}
}

// LoadConfigFile reads a YAML config file on top of base. Fields the file
// does not mention keep base's value. Environment variables in the file are
// expanded.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// NewConfig validates cfg and normalizes its enumerations.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error

	if cfg.SourceRoot == "" {
		errs = append(errs, errors.New("source is a required configuration field and cannot be empty"))
	}
	if cfg.OutDir == "" && !cfg.List {
		errs = append(errs, errors.New("out is a required configuration field and cannot be empty"))
	}
	if cfg.WorkerCount < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", cfg.WorkerCount))
	}
	if cfg.Ops.Port < 0 || cfg.Ops.Port > 65535 {
		errs = append(errs, fmt.Errorf("ops port out of range: %d", cfg.Ops.Port))
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, ok := parseLevel(cfg.LogLevel); !ok {
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
