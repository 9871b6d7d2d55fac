package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/inkflow/internal/replay"
)

// Default configuration constants.
const (
	defaultSurfaces      = 8
	defaultSessions      = 20
	defaultMoves         = 12
	defaultTimeout       = 10 * time.Second
	defaultSettleTimeout = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		surfaces = flag.Int("surfaces", defaultSurfaces, "Number of independent surfaces")
		sessions = flag.Int("sessions", defaultSessions, "Strokes drawn per surface")
		moves    = flag.Int("moves", defaultMoves, "Moved batches per stroke")
		workers  = flag.Int("workers", runtime.NumCPU(), "Surfaces replayed concurrently")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", defaultSettleTimeout, "How long to wait for strokes to finish")
		seed     = flag.Uint64("seed", 0, "Generator seed, 0 for a random one")
		output   = flag.String("output", "", "Save generated batches as JSON")
		logFile  = flag.String("log", "", "Also write logs to this file")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := replay.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)

	_, err = replay.Run(ctx, &replay.Config{
		BaseURL:       *baseURL,
		Surfaces:      *surfaces,
		Sessions:      *sessions,
		Moves:         *moves,
		Workers:       *workers,
		Timeout:       *timeout,
		SettleTimeout: *settle,
		Seed:          *seed,
		OutputFile:    *output,
		Verbose:       *verbose,
	})
	cancel()
	_ = closeLog()
	if err != nil {
		os.Stderr.WriteString("replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
