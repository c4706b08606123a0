// Package seasonsim drives a running engine through a simulated season over
// its HTTP API and checks the resulting ledgers.
package seasonsim

import (
	"time"

	"github.com/okian/squad/internal/domain/model"
)

// Config holds configuration for a simulated season.
type Config struct {
	BaseURL    string        // Base URL of the service
	Teams      int           // Feeder teams in the generated catalog
	Managers   int           // Managers committing squads
	Periods    int           // Periods to finalize
	Transfers  float64       // Share of managers that swap an athlete each period
	Workers    int           // Concurrent HTTP workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Seed for the generators; zero picks one
	OutputFile string        // Where the final ledgers are written
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	AthletesSeeded    int
	Commits           int
	CommitsRejected   int
	CommitsConflicted int
	CommitsFailed     int
	BatchesSubmitted  int
	BatchesDuplicate  int
	PeriodsFinalized  int
	LedgersVerified   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// squadShape is the position layout of one feeder team.
var squadShape = map[model.Position]int{
	model.Keeper:     2,
	model.Defender:   5,
	model.Midfielder: 5,
	model.Forward:    3,
}
