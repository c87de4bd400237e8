package gacha

import (
	"math"
	"sort"
)

// Stats summarizes integer samples.
type Stats struct {
	Mean   float64 `json:"mean"`
	Var    float64 `json:"var"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// TierOdds is the observed outcome of one tier in a simulation.
type TierOdds struct {
	Tier     Tier    `json:"tier"`
	Expected float64 `json:"expected"` // configured weight / 100
	Observed float64 `json:"observed"` // hits / trials
	Hits     int     `json:"hits"`
	Score    Stats   `json:"score"`
}

// Odds is the result of Simulate, in Priority order.
type Odds struct {
	Trials    int        `json:"trials"`
	Fallbacks int        `json:"fallbacks"`
	Tiers     []TierOdds `json:"tiers"`
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	// mean
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)
	stddev := math.Sqrt(variance)

	// percentiles
	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if n == 1 {
			return float64(cp[0])
		}
		if p <= 0 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  stddev,
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

// Simulate rolls the table trials times and reports observed odds per tier.
func Simulate(t *Table, trials int, rng RandomSource) (Odds, error) {
	if trials <= 0 {
		return Odds{}, nil
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	scores := make(map[Tier][]int, len(Priority))
	fallbacks := 0
	for i := 0; i < trials; i++ {
		res, err := t.Roll(rng)
		if err != nil {
			return Odds{}, err
		}
		if res.Fallback {
			fallbacks++
		}
		scores[res.Tier] = append(scores[res.Tier], res.Score)
	}

	out := Odds{Trials: trials, Fallbacks: fallbacks}
	for _, tier := range Priority {
		xs := scores[tier]
		out.Tiers = append(out.Tiers, TierOdds{
			Tier:     tier,
			Expected: float64(t.profiles[tier].Weight) / TotalWeight,
			Observed: float64(len(xs)) / float64(trials),
			Hits:     len(xs),
			Score:    calcStats(xs),
		})
	}
	return out, nil
}
