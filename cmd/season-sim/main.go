package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/squad/internal/seasonsim"
	"github.com/okian/squad/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeams     = 20
	defaultManagers  = 500
	defaultPeriods   = 5
	defaultTransfers = 0.3
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teams      = flag.Int("teams", defaultTeams, "Feeder teams in the generated catalog")
		managers   = flag.Int("managers", defaultManagers, "Managers committing squads")
		periods    = flag.Int("periods", defaultPeriods, "Periods to finalize")
		transfers  = flag.Float64("transfers", defaultTransfers, "Share of managers making a transfer each period")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Generator seed; 0 picks one")
		outputFile = flag.String("output", "", "File for the final ledgers (default: ledgers_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file (default: season_sim_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seasonsim.ShowHelp()
		return
	}

	closer, err := seasonsim.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	cfg := &seasonsim.Config{
		BaseURL:    *baseURL,
		Teams:      *teams,
		Managers:   *managers,
		Periods:    *periods,
		Transfers:  *transfers,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := seasonsim.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "season simulation failed", logger.Error(err))
		stop()
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}
