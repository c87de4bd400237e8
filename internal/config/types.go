// types.go
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support "90s" style values in YAML and TOML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	return d.UnmarshalText([]byte(value.Value))
}

// UnmarshalText is used by the TOML decoder.
func (d *Duration) UnmarshalText(b []byte) error {
	raw := string(b)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Raw config loaded from YAML or TOML. Pointers distinguish "unset" from zero.
type RawConfig struct {
	Network         string       `yaml:"network" toml:"network"`
	PullCost        *float64     `yaml:"pull_cost" toml:"pull_cost"` // display units (ADA)
	TreasuryAddress string       `yaml:"treasury_address" toml:"treasury_address"`
	ConfirmTimeout  Duration     `yaml:"confirm_timeout" toml:"confirm_timeout"`
	PolicyLock      Duration     `yaml:"policy_lock" toml:"policy_lock"`
	MintValidity    Duration     `yaml:"mint_validity" toml:"mint_validity"`
	ExplorerURL     string       `yaml:"explorer_url,omitempty" toml:"explorer_url"`
	Tiers           []TierConfig `yaml:"tiers,omitempty" toml:"tiers"`
}

type TierConfig struct {
	Tier     string `yaml:"tier" toml:"tier"`
	Weight   *int   `yaml:"weight" toml:"weight"`
	Rating   string `yaml:"rating" toml:"rating"`
	ScoreMin *int   `yaml:"score_min" toml:"score_min"`
	ScoreMax *int   `yaml:"score_max" toml:"score_max"`
	Image    string `yaml:"image" toml:"image"`
	Visual   string `yaml:"visual,omitempty" toml:"visual"`
}
