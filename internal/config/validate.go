package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xtding233/gacha-mint/internal/gacha"
	"github.com/xtding233/gacha-mint/internal/ledger"
)

// ErrInvalidConfig marks configuration that must abort startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateRaw checks semantic constraints of a RawConfig and reports all of them.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	slots, netErr := ledger.Network(cfg.Network)
	if netErr != nil {
		errs = append(errs, fmt.Sprintf("network %q is not one of mainnet, preprod, preview, memory", cfg.Network))
	}
	if cfg.PullCost == nil {
		errs = append(errs, "pull_cost is required")
	} else if cost, err := ledger.FromADA(*cfg.PullCost); err != nil || cost == 0 {
		errs = append(errs, "pull_cost must be > 0")
	}
	if strings.TrimSpace(cfg.TreasuryAddress) == "" {
		errs = append(errs, "treasury_address is required")
	}
	if cfg.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "confirm_timeout must be > 0")
	}
	if cfg.PolicyLock.Duration <= 0 {
		errs = append(errs, "policy_lock must be > 0")
	}
	if cfg.MintValidity.Duration <= 0 {
		errs = append(errs, "mint_validity must be > 0")
	}
	// the ledger compares slots, so the gap must cover a whole slot
	if netErr == nil {
		slot := time.Duration(slots.SlotLength) * time.Millisecond
		if cfg.PolicyLock.Duration-cfg.MintValidity.Duration < slot {
			errs = append(errs, fmt.Sprintf("mint_validity must be at least one slot (%s) shorter than policy_lock", slot))
		}
	} else if cfg.MintValidity.Duration >= cfg.PolicyLock.Duration {
		errs = append(errs, "mint_validity must be shorter than policy_lock")
	}

	// tiers
	seen := map[gacha.Tier]bool{}
	sum := 0
	for i, tc := range cfg.Tiers {
		tier, err := gacha.ParseTier(tc.Tier)
		if err != nil {
			errs = append(errs, fmt.Sprintf("tiers[%d].tier %q is unknown", i, tc.Tier))
			continue
		}
		if seen[tier] {
			errs = append(errs, fmt.Sprintf("tiers[%d]: %s listed twice", i, tier))
		}
		seen[tier] = true
		if tc.Weight == nil {
			errs = append(errs, fmt.Sprintf("tiers[%d].weight is required", i))
		} else {
			if *tc.Weight < 0 {
				errs = append(errs, fmt.Sprintf("tiers[%d].weight must be >= 0", i))
			}
			sum += *tc.Weight
		}
		if strings.TrimSpace(tc.Rating) == "" {
			errs = append(errs, fmt.Sprintf("tiers[%d].rating is required", i))
		}
		if tc.ScoreMin == nil || tc.ScoreMax == nil {
			errs = append(errs, fmt.Sprintf("tiers[%d].score_min and score_max are required", i))
		} else {
			if *tc.ScoreMin < 0 {
				errs = append(errs, fmt.Sprintf("tiers[%d].score_min must be >= 0", i))
			}
			if *tc.ScoreMax > 100 {
				errs = append(errs, fmt.Sprintf("tiers[%d].score_max must be <= 100", i))
			}
			if *tc.ScoreMin >= *tc.ScoreMax {
				errs = append(errs, fmt.Sprintf("tiers[%d]: score range [%d,%d) is empty", i, *tc.ScoreMin, *tc.ScoreMax))
			}
		}
		if strings.TrimSpace(tc.Image) == "" {
			errs = append(errs, fmt.Sprintf("tiers[%d].image is required", i))
		}
	}
	for _, tier := range gacha.AllTiers() {
		if !seen[tier] {
			errs = append(errs, fmt.Sprintf("tier %s is missing", tier))
		}
	}
	if sum != gacha.TotalWeight {
		errs = append(errs, fmt.Sprintf("tier weights sum to %d, must be exactly %d", sum, gacha.TotalWeight))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
