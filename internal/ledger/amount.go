package ledger

import (
	"fmt"
	"math"
)

// LovelacePerADA converts display units into the ledger's smallest unit.
const LovelacePerADA = 1_000_000

// Lovelace is an amount in the ledger's smallest unit.
type Lovelace uint64

// FromADA converts a display amount, rounding to the nearest lovelace.
func FromADA(ada float64) (Lovelace, error) {
	if math.IsNaN(ada) || math.IsInf(ada, 0) || ada < 0 {
		return 0, fmt.Errorf("invalid ADA amount %v", ada)
	}
	v := math.Round(ada * LovelacePerADA)
	if v > math.MaxUint64/2 {
		return 0, fmt.Errorf("ADA amount %v out of range", ada)
	}
	return Lovelace(v), nil
}

// ADA returns the amount in display units.
func (l Lovelace) ADA() float64 {
	return float64(l) / LovelacePerADA
}

func (l Lovelace) String() string {
	return fmt.Sprintf("%d.%06d ADA", uint64(l)/LovelacePerADA, uint64(l)%LovelacePerADA)
}
