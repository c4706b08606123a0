package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix  = "SQUAD_"
	EnvConfig  = EnvPrefix + "CONFIG" // YAML process config
	EnvRuleset = EnvPrefix + "RULES"  // TOML game ruleset
)

// Load builds a Config by layering defaults, an optional ruleset, an optional
// file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. ruleset (TOML) if SQUAD_RULES is set
//  3. file (YAML) if SQUAD_CONFIG is set
//  4. env (prefix SQUAD_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	cfg := *New()

	if path := os.Getenv(EnvRuleset); path != "" {
		if err := LoadRuleset(path, &cfg.Rules); err != nil {
			return nil, err
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SQUAD_QUEUE_SIZE -> queue_size, SQUAD_RULES__PRICING__UNIT -> rules.pricing.unit
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfig || s == EnvRuleset {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRuleset decodes a TOML ruleset over r. Keys absent from the file keep
// their current values.
func LoadRuleset(path string, r *Rules) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: ruleset: %w", ErrLoadConfig, err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(r); err != nil {
		return fmt.Errorf("%w: ruleset %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}
