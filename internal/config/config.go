// Package config defines service configuration structures and loading hooks.
//
// Game rules are plain numbers here and are converted into the domain's
// decimal-based parameter types at the edge.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pricing"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/okian/squad/internal/domain/scoring"
	"github.com/okian/squad/internal/domain/transfer"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the finalization job queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of finalization workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the remembered batch ids.
	DedupeSize int `koanf:"dedupe_size"`

	// FinalizeParallelism bounds concurrent ledger rollovers.
	FinalizeParallelism int `koanf:"finalize_parallelism"`

	// Store selects the backend: memory or postgres.
	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`

	// TransfersEnabled and Deadline seed the stored settings when the store
	// has none.
	TransfersEnabled bool   `koanf:"transfers_enabled"`
	Deadline         string `koanf:"deadline"` // RFC3339, empty keeps the window open

	Rules Rules `koanf:"rules"`
}

// Rules is the configurable game ruleset.
type Rules struct {
	Budget    float64       `koanf:"budget" toml:"budget"`
	Pricing   PricingRules  `koanf:"pricing" toml:"pricing"`
	Scoring   ScoringRules  `koanf:"scoring" toml:"scoring"`
	Roster    RosterRules   `koanf:"roster" toml:"roster"`
	Transfers TransferRules `koanf:"transfers" toml:"transfers"`
}

// PricingRules mirror pricing.Params.
type PricingRules struct {
	Unit               float64 `koanf:"unit" toml:"unit"`
	Min                float64 `koanf:"min" toml:"min"`
	Max                float64 `koanf:"max" toml:"max"`
	WeeklyMaxChange    float64 `koanf:"weekly_max_change" toml:"weekly_max_change"`
	RiseThreshold      float64 `koanf:"rise_threshold" toml:"rise_threshold"`
	AlphaDemand        float64 `koanf:"alpha_demand" toml:"alpha_demand"`
	Lookback           int     `koanf:"lookback" toml:"lookback"`
	KPerf              float64 `koanf:"k_perf" toml:"k_perf"`
	AlphaPerf          float64 `koanf:"alpha_perf" toml:"alpha_perf"`
	DefaultBaselinePPG float64 `koanf:"default_baseline_ppg" toml:"default_baseline_ppg"`
	WDemand            float64 `koanf:"w_demand" toml:"w_demand"`
	WPerf              float64 `koanf:"w_perf" toml:"w_perf"`
	HistoryLength      int     `koanf:"history_length" toml:"history_length"`
}

// PositionValues holds one integer per position.
type PositionValues struct {
	GK  int `koanf:"gk" toml:"gk"`
	DEF int `koanf:"def" toml:"def"`
	MID int `koanf:"mid" toml:"mid"`
	FWD int `koanf:"fwd" toml:"fwd"`
}

func (v PositionValues) byPosition() map[model.Position]int {
	return map[model.Position]int{
		model.Keeper:     v.GK,
		model.Defender:   v.DEF,
		model.Midfielder: v.MID,
		model.Forward:    v.FWD,
	}
}

func positionValues(m map[model.Position]int) PositionValues {
	return PositionValues{GK: m[model.Keeper], DEF: m[model.Defender], MID: m[model.Midfielder], FWD: m[model.Forward]}
}

// ScoringRules mirror scoring.Table.
type ScoringRules struct {
	Goal          PositionValues `koanf:"goal" toml:"goal"`
	Assist        PositionValues `koanf:"assist" toml:"assist"`
	CleanSheet    PositionValues `koanf:"clean_sheet" toml:"clean_sheet"`
	CardTier1     int            `koanf:"card_tier1" toml:"card_tier1"`
	CardTier2     int            `koanf:"card_tier2" toml:"card_tier2"`
	CardTier3     int            `koanf:"card_tier3" toml:"card_tier3"`
	Win           int            `koanf:"win" toml:"win"`
	Draw          int            `koanf:"draw" toml:"draw"`
	Loss          int            `koanf:"loss" toml:"loss"`
	ManOfTheMatch int            `koanf:"man_of_the_match" toml:"man_of_the_match"`
}

// RosterRules mirror roster.Rules.
type RosterRules struct {
	SquadSize  int            `koanf:"squad_size" toml:"squad_size"`
	Formation  PositionValues `koanf:"formation" toml:"formation"`
	MaxPerTeam int            `koanf:"max_per_team" toml:"max_per_team"`
	MinPerTeam int            `koanf:"min_per_team" toml:"min_per_team"`
	Teams      []string       `koanf:"teams" toml:"teams"`
}

// TransferRules mirror transfer.Rules.
type TransferRules struct {
	InitialFree             int `koanf:"initial_free" toml:"initial_free"`
	MaxFree                 int `koanf:"max_free" toml:"max_free"`
	PenaltyPoints           int `koanf:"penalty_points" toml:"penalty_points"`
	CaptainMultiplier       int `koanf:"captain_multiplier" toml:"captain_multiplier"`
	TripleCaptainMultiplier int `koanf:"triple_captain_multiplier" toml:"triple_captain_multiplier"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		EventQueueSize:      64,
		WorkerCount:         1,
		DedupeSize:          10_000,
		FinalizeParallelism: runtime.NumCPU(),
		Store:               StoreMemory,
		Rules:               DefaultRules(),
	}
}

// DefaultRules expresses the domain defaults in config form.
func DefaultRules() Rules {
	p := pricing.DefaultParams()
	t := scoring.DefaultTable()
	r := roster.DefaultRules()
	tr := transfer.DefaultRules()
	return Rules{
		Budget: r.Budget.InexactFloat64(),
		Pricing: PricingRules{
			Unit:               p.Unit.InexactFloat64(),
			Min:                p.Min.InexactFloat64(),
			Max:                p.Max.InexactFloat64(),
			WeeklyMaxChange:    p.WeeklyMaxChange.InexactFloat64(),
			RiseThreshold:      p.RiseThreshold.InexactFloat64(),
			AlphaDemand:        p.AlphaDemand.InexactFloat64(),
			Lookback:           p.Lookback,
			KPerf:              p.KPerf.InexactFloat64(),
			AlphaPerf:          p.AlphaPerf.InexactFloat64(),
			DefaultBaselinePPG: p.DefaultBaselinePPG.InexactFloat64(),
			WDemand:            p.WDemand.InexactFloat64(),
			WPerf:              p.WPerf.InexactFloat64(),
			HistoryLength:      p.HistoryLength,
		},
		Scoring: ScoringRules{
			Goal:          positionValues(t.Goal),
			Assist:        positionValues(t.Assist),
			CleanSheet:    positionValues(t.CleanSheet),
			CardTier1:     t.Cards[0],
			CardTier2:     t.Cards[1],
			CardTier3:     t.Cards[2],
			Win:           t.Win,
			Draw:          t.Draw,
			Loss:          t.Loss,
			ManOfTheMatch: t.ManOfTheMatch,
		},
		Roster: RosterRules{
			SquadSize:  r.SquadSize,
			Formation:  positionValues(r.Formation),
			MaxPerTeam: r.MaxPerTeam,
			MinPerTeam: r.MinPerTeam,
		},
		Transfers: TransferRules{
			InitialFree:             tr.InitialFreeTransfers,
			MaxFree:                 tr.MaxFreeTransfers,
			PenaltyPoints:           tr.PenaltyPoints,
			CaptainMultiplier:       tr.CaptainMultiplier,
			TripleCaptainMultiplier: tr.TripleCaptainMultiplier,
		},
	}
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// PricingParams converts the pricing section.
func (r Rules) PricingParams() pricing.Params {
	p := r.Pricing
	return pricing.Params{
		Unit:               dec(p.Unit),
		Min:                dec(p.Min),
		Max:                dec(p.Max),
		WeeklyMaxChange:    dec(p.WeeklyMaxChange),
		RiseThreshold:      dec(p.RiseThreshold),
		AlphaDemand:        dec(p.AlphaDemand),
		Lookback:           p.Lookback,
		KPerf:              dec(p.KPerf),
		AlphaPerf:          dec(p.AlphaPerf),
		DefaultBaselinePPG: dec(p.DefaultBaselinePPG),
		WDemand:            dec(p.WDemand),
		WPerf:              dec(p.WPerf),
		HistoryLength:      p.HistoryLength,
	}
}

// ScoringTable converts the scoring section.
func (r Rules) ScoringTable() scoring.Table {
	s := r.Scoring
	return scoring.Table{
		Goal:          s.Goal.byPosition(),
		Assist:        s.Assist.byPosition(),
		CleanSheet:    s.CleanSheet.byPosition(),
		Cards:         [model.CardTiers]int{s.CardTier1, s.CardTier2, s.CardTier3},
		Win:           s.Win,
		Draw:          s.Draw,
		Loss:          s.Loss,
		ManOfTheMatch: s.ManOfTheMatch,
	}
}

// RosterRules converts the roster section.
func (r Rules) RosterRules() roster.Rules {
	return roster.Rules{
		SquadSize:  r.Roster.SquadSize,
		Formation:  r.Roster.Formation.byPosition(),
		MaxPerTeam: r.Roster.MaxPerTeam,
		MinPerTeam: r.Roster.MinPerTeam,
		Teams:      append([]string(nil), r.Roster.Teams...),
		Budget:     dec(r.Budget),
	}
}

// TransferRules converts the transfers section.
func (r Rules) TransferRules() transfer.Rules {
	t := r.Transfers
	return transfer.Rules{
		InitialFreeTransfers:    t.InitialFree,
		MaxFreeTransfers:        t.MaxFree,
		PenaltyPoints:           t.PenaltyPoints,
		Budget:                  dec(r.Budget),
		CaptainMultiplier:       t.CaptainMultiplier,
		TripleCaptainMultiplier: t.TripleCaptainMultiplier,
	}
}

// Settings returns the configured transfer settings.
func (c *Config) Settings() (model.Settings, error) {
	s := model.Settings{TransfersEnabled: c.TransfersEnabled}
	if strings.TrimSpace(c.Deadline) == "" {
		return s, nil
	}
	t, err := time.Parse(time.RFC3339, c.Deadline)
	if err != nil {
		return s, fmt.Errorf("%w: deadline: %w", ErrInvalidConfig, err)
	}
	s.Deadline = t.UTC()
	return s, nil
}

// Validate reports every problem at once, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be json or text", c.LogFormat))
	}
	if c.EventQueueSize <= 0 {
		errs = append(errs, errors.New("queue_size must be positive"))
	}
	if c.FinalizeParallelism <= 0 {
		errs = append(errs, errors.New("finalize_parallelism must be positive"))
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("database_url is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store %q must be memory or postgres", c.Store))
	}
	if _, err := c.Settings(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Rules.PricingParams().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Rules.ScoringTable().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Rules.RosterRules().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Rules.TransferRules().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
