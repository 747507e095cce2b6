package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/specialistvlad/permodule/internal/app"
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

// defaults holds the flag defaults read from PERMODULE_* environment
// variables. An explicit flag always wins.
type defaults struct {
	LogLevel        string `env:"PERMODULE_LOG_LEVEL" envDefault:"info"`
	LogFormat       string `env:"PERMODULE_LOG_FORMAT" envDefault:"text"`
	HealthcheckPort int    `env:"PERMODULE_HEALTHCHECK_PORT" envDefault:"0"`
	HistoryPath     string `env:"PERMODULE_HISTORY"`
	SocketURL       string `env:"PERMODULE_SOCKET_URL"`
	SocketNamespace string `env:"PERMODULE_SOCKET_NAMESPACE" envDefault:"/"`
	SocketEvent     string `env:"PERMODULE_SOCKET_EVENT" envDefault:"notice"`
	OTelEndpoint    string `env:"PERMODULE_OTEL_ENDPOINT"`
	MaxParallel     int    `env:"PERMODULE_MAX_PARALLEL" envDefault:"0"`
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(args, output, env.ToMap(os.Environ()))
}

func parse(args []string, output io.Writer, environ map[string]string) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var d defaults
	if err := env.ParseWithOptions(&d, env.Options{Environment: environ}); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid environment: %v", err)}
	}

	flagSet := flag.NewFlagSet("permodule", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
permodule - Run one command across many workspace modules in parallel.

Usage:
  permodule [options] [MANIFEST_PATH]

Arguments:
  MANIFEST_PATH
    Path to a .hcl/.yaml manifest or a directory containing manifests.

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to the manifest file or directory.")
	mFlag := flagSet.String("m", "", "Path to the manifest file or directory (shorthand).")
	taskFlag := flagSet.String("task", "", "Name of the task to run. Defaults to the first declared task.")
	tFlag := flagSet.String("t", "", "Name of the task to run (shorthand).")
	listFlag := flagSet.Bool("list", false, "Print the selected modules instead of running the task.")
	recentFlag := flagSet.Int("recent", 0, "Print this many recorded runs from -history and exit.")
	logFormatFlag := flagSet.String("log-format", d.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", d.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPortFlag := flagSet.Int("healthcheck-port", d.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")
	historyFlag := flagSet.String("history", d.HistoryPath, "Path to the SQLite run history database. Empty disables history.")
	socketURLFlag := flagSet.String("socket-url", d.SocketURL, "socket.io server that receives run notices. Empty disables it.")
	socketNSFlag := flagSet.String("socket-namespace", d.SocketNamespace, "socket.io namespace for run notices.")
	socketEventFlag := flagSet.String("socket-event", d.SocketEvent, "socket.io event name for run notices.")
	otelFlag := flagSet.String("otel-endpoint", d.OTelEndpoint, "OTLP/HTTP endpoint for traces. Empty disables tracing.")
	maxParallelFlag := flagSet.Int("max-parallel", d.MaxParallel, "Override the task's max_parallel. 0 keeps the task's value.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := first(*manifestFlag, *mFlag)
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Manifest path determined.", "path", path)

	if path == "" {
		slog.Debug("No manifest path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath:    path,
		Task:            first(*taskFlag, *tFlag),
		List:            *listFlag,
		Recent:          *recentFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		HistoryPath:     *historyFlag,
		SocketURL:       *socketURLFlag,
		SocketNamespace: *socketNSFlag,
		SocketEvent:     *socketEventFlag,
		OTelEndpoint:    *otelFlag,
		MaxParallel:     *maxParallelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
