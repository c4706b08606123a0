package seasonsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/squad/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends the structured log to stdout and to logFile.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "season_sim_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithFormat("text"), logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the season simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Season Simulator
================

Drives a running engine through a season: seeds a catalog, commits squads
for many managers concurrently, finalizes periods and verifies the ledgers.

Usage:
  go run ./cmd/season-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -teams int
        Feeder teams in the generated catalog (default 20)
  -managers int
        Managers committing squads (default 500)
  -periods int
        Periods to finalize (default 5)
  -transfers float
        Share of managers making a transfer each period (default 0.3)
  -workers int
        Concurrent HTTP workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Generator seed; 0 picks one
  -output string
        File for the final ledgers (default: ledgers_TIMESTAMP.json)
  -log string
        Log file (default: season_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/season-sim -managers 2000 -periods 10
  go run ./cmd/season-sim -url http://localhost:8080 -seed 42 -verbose
`)
}
