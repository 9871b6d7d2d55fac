package replay

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/inkflow/pkg/logger"
)

// SetupLogging initializes the logger, optionally teeing output to logFile.
// The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile == "" {
		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return file.Close, nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `inkflow replay
==============

Draws synthetic pen and finger strokes against a running inkflow service
and checks that every stroke ends up archived as finished.

Usage:
  go run ./cmd/replay [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -surfaces int       Number of independent surfaces (default 8)
  -sessions int       Strokes drawn per surface (default 20)
  -moves int          Moved batches per stroke (default 12)
  -workers int        Surfaces replayed concurrently (default CPU cores)
  -timeout duration   HTTP request timeout (default 10s)
  -settle duration    How long to wait for strokes to finish (default 30s)
  -seed uint          Generator seed, 0 for a random one
  -output string      Save generated batches as JSON
  -log string         Also write logs to this file
  -verbose            Enable debug logging
  -help               Show this help message

Examples:
  go run ./cmd/replay -surfaces 32 -sessions 50
  go run ./cmd/replay -seed 42 -output batches.json
`)
}
