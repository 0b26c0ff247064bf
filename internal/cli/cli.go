package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/bundlegrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Values resolve in three layers: app.DefaultConfig, then the YAML file
// named by -config, then every flag given explicitly on the command line.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bundlegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
BundleGrid - builds per-platform JavaScript bundles from one shared source tree.

Usage:
  bundlegrid [options] [UNIT ...]

Arguments:
  UNIT
    Name of a compilation unit to build. With no units, every unit is built.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := app.DefaultConfig()
	configFlag := flagSet.String("config", "", "Path to a YAML config file. Flags override its values.")
	sourceFlag := flagSet.String("source", defaults.SourceRoot, "Root of the shared source tree.")
	outFlag := flagSet.String("out", defaults.OutDir, "Directory the artifacts are written to.")
	catalogFlag := flagSet.String("catalog", "", "Path to an .hcl catalog file or directory. Empty uses the built-in catalog.")
	workersFlag := flagSet.Int("workers", defaults.WorkerCount, "Number of units built at once. 0 means one per CPU.")
	failFastFlag := flagSet.Bool("fail-fast", false, "Stop scheduling units after the first failure.")
	listFlag := flagSet.Bool("list", false, "Print the catalog and exit.")
	watchFlag := flagSet.Bool("watch", false, "Rebuild affected units when source files change.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	opsPortFlag := flagSet.Int("ops-port", 0, "Port for the ops HTTP server (health, metrics, batches). 0 is disabled.")
	historyFlag := flagSet.String("history-db", "", "SQLite file recording build history. Empty is disabled.")
	notifyFlag := flagSet.String("notify-url", "", "Socket.IO endpoint told about finished batches. Empty is disabled.")
	javaFlag := flagSet.String("java", defaults.Compiler.Java, "Java executable that runs the compiler.")
	jarFlag := flagSet.String("compiler-jar", "", "Path to the Closure Compiler jar.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := defaults
	if *configFlag != "" {
		loaded, err := app.LoadConfigFile(*configFlag, cfg)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
		slog.Debug("Config file loaded.", "path", *configFlag)
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.SourceRoot = *sourceFlag
		case "out":
			cfg.OutDir = *outFlag
		case "catalog":
			cfg.CatalogPath = *catalogFlag
		case "workers":
			cfg.WorkerCount = *workersFlag
		case "fail-fast":
			cfg.FailFast = *failFastFlag
		case "watch":
			cfg.Watch = *watchFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "ops-port":
			cfg.Ops.Port = *opsPortFlag
		case "history-db":
			cfg.History.DB = *historyFlag
		case "notify-url":
			cfg.Notify.URL = *notifyFlag
		case "java":
			cfg.Compiler.Java = *javaFlag
		case "compiler-jar":
			cfg.Compiler.Jar = *jarFlag
		}
	})
	cfg.List = *listFlag
	if flagSet.NArg() > 0 {
		cfg.Units = flagSet.Args()
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
