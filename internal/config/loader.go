package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/xtding233/gacha-mint/internal/gacha"
)

const defaultTreasury = "addr_test1qq4uxwv55dqwufts3md0g9r6rn4vys3c3yjrzz4jfk8wcmh3kxqgjchqfdjzccnzrx8cuyce96pc7hhn8pthpk9k46xqput4ca"

// Default returns the stock machine: 5 ADA per pull on preprod.
func Default() RawConfig {
	cost := 5.0
	cfg := RawConfig{
		Network:         "preprod",
		PullCost:        &cost,
		TreasuryAddress: defaultTreasury,
		ConfirmTimeout:  Duration{3 * time.Minute},
		PolicyLock:      Duration{1000 * time.Second},
		MintValidity:    Duration{200 * time.Second},
	}
	for _, p := range gacha.DefaultProfiles() {
		w, lo, hi := p.Weight, p.ScoreMin, p.ScoreMax
		cfg.Tiers = append(cfg.Tiers, TierConfig{
			Tier:     strings.ToLower(p.Tier.String()),
			Weight:   &w,
			Rating:   p.Rating,
			ScoreMin: &lo,
			ScoreMax: &hi,
			Image:    p.Image,
			Visual:   p.Visual,
		})
	}
	return cfg
}

// Load reads path (YAML or TOML by extension) over the defaults.
// An empty path returns the defaults.
func Load(path string) (RawConfig, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return RawConfig{}, fmt.Errorf("read config: %w", err)
	}
	file, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return RawConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return mergeRaw(Default(), file), nil
}

// Parse decodes raw bytes; ext selects the format (".toml" or YAML otherwise).
func Parse(b []byte, ext string) (RawConfig, error) {
	var cfg RawConfig
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(b)).Decode(&cfg); err != nil {
			return RawConfig{}, err
		}
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return RawConfig{}, err
		}
	}
	return cfg, nil
}

// LoadMachine loads, validates and builds the machine in one step.
func LoadMachine(path string) (*Machine, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Build(cfg)
}

// mergeRaw overlays b on a where b is set. A non-empty tier list replaces
// the whole table; tiers are never merged one by one.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a
	if b.Network != "" {
		out.Network = b.Network
	}
	if b.PullCost != nil {
		out.PullCost = b.PullCost
	}
	if b.TreasuryAddress != "" {
		out.TreasuryAddress = b.TreasuryAddress
	}
	if b.ConfirmTimeout.Duration != 0 {
		out.ConfirmTimeout = b.ConfirmTimeout
	}
	if b.PolicyLock.Duration != 0 {
		out.PolicyLock = b.PolicyLock
	}
	if b.MintValidity.Duration != 0 {
		out.MintValidity = b.MintValidity
	}
	if b.ExplorerURL != "" {
		out.ExplorerURL = b.ExplorerURL
	}
	if len(b.Tiers) > 0 {
		out.Tiers = append([]TierConfig(nil), b.Tiers...)
	}
	return out
}
