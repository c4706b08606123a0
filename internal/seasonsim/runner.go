package seasonsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/okian/squad/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// ErrPeriodFailed is returned when the engine reports a failed finalization.
var ErrPeriodFailed = errors.New("period finalization failed")

// Runner executes one simulated season.
type Runner struct {
	cfg    *Config
	client *HTTPClient
	gen    *Generator
	log    logger.Logger
	stats  Stats
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg *Config) *Runner {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:    cfg,
		client: newHTTPClient(cfg.BaseURL, cfg.Timeout),
		gen:    NewGenerator(seed, roster.DefaultRules()),
		log:    logger.Named("seasonsim"),
	}
}

// Run executes the complete season and returns its statistics.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	return NewRunner(cfg).Run(ctx)
}

// Run executes the complete season and returns its statistics.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	r.stats = Stats{StartTime: time.Now()}
	r.log.Info(ctx, "starting season simulation",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("teams", r.cfg.Teams),
		logger.Int("managers", r.cfg.Managers),
		logger.Int("periods", r.cfg.Periods),
		logger.Int("workers", r.cfg.Workers),
	)

	if err := r.checkHealth(ctx); err != nil {
		return r.stats, fmt.Errorf("service health check failed: %w", err)
	}
	if _, err := r.client.Do(ctx, http.MethodPut, "/settings",
		map[string]any{"transfers_enabled": true, "deadline": ""}, nil); err != nil {
		return r.stats, fmt.Errorf("settings: %w", err)
	}

	catalog := r.gen.Catalog(r.cfg.Teams)
	if _, err := r.client.Do(ctx, http.MethodPut, "/athletes", catalog, nil); err != nil {
		return r.stats, fmt.Errorf("seed catalog: %w", err)
	}
	r.stats.AthletesSeeded = len(catalog)

	drafts := make([]model.RosterDraft, 0, r.cfg.Managers)
	for i := 1; i <= r.cfg.Managers; i++ {
		d, err := r.gen.Squad(fmt.Sprintf("manager-%05d", i), catalog)
		if err != nil {
			return r.stats, err
		}
		drafts = append(drafts, d)
	}
	if err := r.commitAll(ctx, drafts); err != nil {
		return r.stats, fmt.Errorf("initial squads: %w", err)
	}

	for p := 1; p <= r.cfg.Periods; p++ {
		if err := r.playPeriod(ctx, p); err != nil {
			return r.stats, fmt.Errorf("period %d: %w", p, err)
		}
	}

	ledgers, err := r.verify(ctx)
	if err != nil {
		return r.stats, fmt.Errorf("verification failed: %w", err)
	}
	if err := r.saveLedgers(ctx, ledgers); err != nil {
		r.log.Warn(ctx, "failed to save ledgers", logger.Error(err))
	}

	r.stats.EndTime = time.Now()
	r.stats.Duration = r.stats.EndTime.Sub(r.stats.StartTime)
	r.displayFinalStats(ctx)
	return r.stats, nil
}

func (r *Runner) checkHealth(ctx context.Context) error {
	code, err := r.client.Do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if code != StatusOK {
		return fmt.Errorf("unexpected status %d", code)
	}
	return nil
}

// commitAll commits drafts with the configured concurrency. Rejected drafts
// and lost races are counted, not fatal.
func (r *Runner) commitAll(ctx context.Context, drafts []model.RosterDraft) error {
	var committed, rejected, conflicted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, d := range drafts {
		g.Go(func() error {
			var res service.CommitResult
			code, err := r.client.Do(gctx, http.MethodPost, "/squads/commit", d, &res)
			switch {
			case code == StatusOK:
				committed.Add(1)
			case code == StatusUnprocessableEntity:
				rejected.Add(1)
				if r.cfg.Verbose {
					r.log.Debug(gctx, "draft rejected", logger.String("manager", d.ManagerID),
						logger.Int("violations", len(res.Plan.Report.Violations)))
				}
			case code == StatusConflict:
				conflicted.Add(1)
			default:
				failed.Add(1)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.log.Warn(gctx, "commit failed", logger.String("manager", d.ManagerID), logger.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.stats.Commits += int(committed.Load())
	r.stats.CommitsRejected += int(rejected.Load())
	r.stats.CommitsConflicted += int(conflicted.Load())
	r.stats.CommitsFailed += int(failed.Load())
	r.log.Info(ctx, "commits completed",
		logger.Int64("committed", committed.Load()),
		logger.Int64("rejected", rejected.Load()),
		logger.Int64("conflicted", conflicted.Load()),
		logger.Int64("failed", failed.Load()),
	)
	return nil
}

func (r *Runner) playPeriod(ctx context.Context, period int) error {
	var athletes []model.Athlete
	if _, err := r.client.Do(ctx, http.MethodGet, "/athletes", nil, &athletes); err != nil {
		return err
	}
	var ledgers []model.TeamLedger
	if _, err := r.client.Do(ctx, http.MethodGet, "/ledgers", nil, &ledgers); err != nil {
		return err
	}

	catalog := model.NewCatalog(athletes)
	var swaps []model.RosterDraft
	for _, l := range ledgers {
		if !r.gen.Pick(r.cfg.Transfers) {
			continue
		}
		if d, ok := r.gen.Swap(l, catalog); ok {
			swaps = append(swaps, d)
		}
	}
	if err := r.commitAll(ctx, swaps); err != nil {
		return err
	}

	batch := model.PeriodBatch{
		Period:  period,
		BatchID: uuid.NewString(),
		Reports: r.gen.Reports(athletes),
	}
	code, err := r.client.Do(ctx, http.MethodPost, "/periods", batch, nil)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	if code != StatusAccepted {
		return fmt.Errorf("submit batch: unexpected status %d", code)
	}
	r.stats.BatchesSubmitted++

	// Replaying the batch id must be acknowledged as a duplicate.
	var ack struct {
		Duplicate bool `json:"duplicate"`
	}
	if _, err := r.client.Do(ctx, http.MethodPost, "/periods", batch, &ack); err != nil {
		return fmt.Errorf("replay batch: %w", err)
	}
	if !ack.Duplicate {
		return fmt.Errorf("replayed batch %s was not detected as a duplicate", batch.BatchID)
	}
	r.stats.BatchesDuplicate++

	status, err := r.awaitPeriod(ctx, period)
	if err != nil {
		return err
	}
	r.stats.PeriodsFinalized++
	fields := []logger.Field{logger.Int("period", period), logger.Int("swaps", len(swaps))}
	if status.Record != nil {
		fields = append(fields,
			logger.Int("reports", status.Record.ReportsScored),
			logger.Int("ledgers", status.Record.LedgersRolled),
			logger.Int("skipped", len(status.Record.Skipped)),
		)
	}
	r.log.Info(ctx, "period finalized", fields...)
	return nil
}

func (r *Runner) awaitPeriod(ctx context.Context, period int) (service.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, PeriodTimeout)
	defer cancel()

	path := "/periods/" + strconv.Itoa(period)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		var st service.JobStatus
		if _, err := r.client.Do(ctx, http.MethodGet, path, nil, &st); err == nil {
			switch st.State {
			case service.JobDone:
				return st, nil
			case service.JobFailed:
				return st, fmt.Errorf("%w: %s", ErrPeriodFailed, st.Error)
			}
		}
		select {
		case <-ctx.Done():
			return service.JobStatus{}, fmt.Errorf("waiting for period %d: %w", period, ctx.Err())
		case <-ticker.C:
		}
	}
}

// saveLedgers writes the final ledgers as a JSON array.
func (r *Runner) saveLedgers(ctx context.Context, ledgers []model.TeamLedger) error {
	filename := r.cfg.OutputFile
	if filename == "" {
		filename = "ledgers_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			r.log.Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ledgers); err != nil {
		return fmt.Errorf("failed to write ledgers: %w", err)
	}
	r.log.Info(ctx, "ledgers saved to file", logger.String("filename", filename))
	return nil
}

func (r *Runner) displayFinalStats(ctx context.Context) {
	var acceptRate float64
	if total := r.stats.Commits + r.stats.CommitsRejected + r.stats.CommitsConflicted + r.stats.CommitsFailed; total > 0 {
		acceptRate = float64(r.stats.Commits) / float64(total) * PercentageMultiplier
	}
	r.log.Info(ctx, "final statistics",
		logger.Int("athletesSeeded", r.stats.AthletesSeeded),
		logger.Int("commits", r.stats.Commits),
		logger.Int("commitsRejected", r.stats.CommitsRejected),
		logger.Int("commitsConflicted", r.stats.CommitsConflicted),
		logger.Int("commitsFailed", r.stats.CommitsFailed),
		logger.Int("batchesSubmitted", r.stats.BatchesSubmitted),
		logger.Int("batchesDuplicate", r.stats.BatchesDuplicate),
		logger.Int("periodsFinalized", r.stats.PeriodsFinalized),
		logger.Int("ledgersVerified", r.stats.LedgersVerified),
		logger.Duration("duration", r.stats.Duration),
		logger.Float64("acceptRate", acceptRate),
	)
}
