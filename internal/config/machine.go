package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/xtding233/gacha-mint/internal/gacha"
	"github.com/xtding233/gacha-mint/internal/ledger"
)

var explorers = map[string]string{
	"mainnet": "https://cardanoscan.io/transaction/",
	"preprod": "https://preprod.cardanoscan.io/transaction/",
	"preview": "https://preview.cardanoscan.io/transaction/",
}

// Machine is the validated, immutable configuration of one gacha machine.
type Machine struct {
	Network        string
	Slots          ledger.SlotConfig
	PullCost       ledger.Lovelace
	Treasury       string
	Table          *gacha.Table
	ConfirmTimeout time.Duration
	PolicyLock     time.Duration
	MintValidity   time.Duration
	ExplorerURL    string
}

// Build validates cfg and converts it into a Machine.
func Build(cfg RawConfig) (*Machine, error) {
	if err := ValidateRaw(cfg); err != nil {
		return nil, err
	}
	network := strings.ToLower(strings.TrimSpace(cfg.Network))
	slots, err := ledger.Network(network)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cost, err := ledger.FromADA(*cfg.PullCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	profiles := make([]gacha.Profile, 0, len(cfg.Tiers))
	for _, tc := range cfg.Tiers {
		tier, _ := gacha.ParseTier(tc.Tier)
		profiles = append(profiles, gacha.Profile{
			Tier:     tier,
			Weight:   *tc.Weight,
			Rating:   strings.TrimSpace(tc.Rating),
			ScoreMin: *tc.ScoreMin,
			ScoreMax: *tc.ScoreMax,
			Image:    strings.TrimSpace(tc.Image),
			Visual:   tc.Visual,
		})
	}
	table, err := gacha.NewTable(profiles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	explorer := cfg.ExplorerURL
	if explorer == "" {
		explorer = explorers[network]
	}
	return &Machine{
		Network:        network,
		Slots:          slots,
		PullCost:       cost,
		Treasury:       strings.TrimSpace(cfg.TreasuryAddress),
		Table:          table,
		ConfirmTimeout: cfg.ConfirmTimeout.Duration,
		PolicyLock:     cfg.PolicyLock.Duration,
		MintValidity:   cfg.MintValidity.Duration,
		ExplorerURL:    explorer,
	}, nil
}

// ExplorerLink returns a browser link for txHash, or "" without an explorer.
func (m *Machine) ExplorerLink(txHash string) string {
	if m.ExplorerURL == "" || txHash == "" {
		return ""
	}
	return m.ExplorerURL + txHash
}
