package gacha

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// TotalWeight is what the weights of a table must add up to.
const TotalWeight = 100

var (
	ErrInvalidRoll  = errors.New("invalid roll; must be a finite value >= 0")
	ErrInvalidTable = errors.New("invalid tier table")
)

func validateRoll(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return ErrInvalidRoll
	}
	if r < 0 {
		return ErrInvalidRoll
	}
	return nil
}

// validateProfiles checks every tier is present once, weights sum to
// TotalWeight and score ranges are non-empty. All problems are reported.
func validateProfiles(profiles []Profile) error {
	var errs []string
	seen := make(map[Tier]bool, len(profiles))
	sum := 0
	for i, p := range profiles {
		if !p.Tier.Valid() {
			errs = append(errs, fmt.Sprintf("tiers[%d]: unknown tier %d", i, int(p.Tier)))
			continue
		}
		if seen[p.Tier] {
			errs = append(errs, fmt.Sprintf("tiers[%d]: duplicate tier %s", i, p.Tier))
		}
		seen[p.Tier] = true
		if p.Weight < 0 {
			errs = append(errs, fmt.Sprintf("%s: weight must be >= 0", p.Tier))
		}
		sum += p.Weight
		if strings.TrimSpace(p.Rating) == "" {
			errs = append(errs, fmt.Sprintf("%s: rating is required", p.Tier))
		}
		if p.ScoreMin >= p.ScoreMax {
			errs = append(errs, fmt.Sprintf("%s: score range [%d,%d) is empty", p.Tier, p.ScoreMin, p.ScoreMax))
		}
	}
	for _, t := range AllTiers() {
		if !seen[t] {
			errs = append(errs, fmt.Sprintf("%s: missing profile", t))
		}
	}
	if sum != TotalWeight {
		errs = append(errs, fmt.Sprintf("weights sum to %d, want %d", sum, TotalWeight))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(errs, "; "))
	}
	return nil
}
