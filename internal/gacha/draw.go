package gacha

// Result is one drawn reward.
type Result struct {
	Tier   Tier   `json:"tier"`
	Rating string `json:"rating"`
	Score  int    `json:"score"`
	Visual string `json:"visual,omitempty"`
	// Fallback is set when no bucket matched the roll and Common was forced.
	Fallback bool `json:"-"`
}

// Table is the validated, read-only tier configuration.
type Table struct {
	profiles [len(Priority)]Profile // indexed by Tier
}

// NewTable validates profiles and builds a table. Input order is irrelevant;
// bucketing always follows Priority.
func NewTable(profiles []Profile) (*Table, error) {
	if err := validateProfiles(profiles); err != nil {
		return nil, err
	}
	t := &Table{}
	for _, p := range profiles {
		t.profiles[p.Tier] = p
	}
	return t, nil
}

// DefaultTable returns the stock table. It panics only if DefaultProfiles is broken.
func DefaultTable() *Table {
	t, err := NewTable(DefaultProfiles())
	if err != nil {
		panic(err)
	}
	return t
}

// Profile returns the configuration of tier, or the zero Profile for an
// unknown tier.
func (t *Table) Profile(tier Tier) Profile {
	if !tier.Valid() {
		return Profile{}
	}
	return t.profiles[tier]
}

// Profiles returns a copy of all profiles in Priority order.
func (t *Table) Profiles() []Profile {
	out := make([]Profile, 0, len(Priority))
	for _, tier := range Priority {
		out = append(out, t.profiles[tier])
	}
	return out
}

// Bounds returns the cumulative roll interval owned by tier.
// A roll r selects tier when lo <= r <= hi (the first match in Priority wins).
func (t *Table) Bounds(tier Tier) (lo, hi float64) {
	cum := 0
	for _, cur := range Priority {
		next := cum + t.profiles[cur].Weight
		if cur == tier {
			return float64(cum), float64(next)
		}
		cum = next
	}
	return 0, 0
}

// Draw maps a roll r in [0,100) to a reward.
// The tier and rating depend on r only; rng is used for the score.
// r >= 100 matches no bucket and falls back to Common with Fallback set.
func (t *Table) Draw(r float64, rng RandomSource) (Result, error) {
	if err := validateRoll(r); err != nil {
		return Result{}, err
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	if r >= TotalWeight {
		return t.result(Common, rng, true), nil
	}
	cum := 0
	for _, tier := range Priority {
		w := t.profiles[tier].Weight
		if w == 0 {
			continue
		}
		cum += w
		if r <= float64(cum) {
			return t.result(tier, rng, false), nil
		}
	}
	return t.result(Common, rng, true), nil
}

// Roll draws a fresh uniform value in [0,100) from rng and draws with it.
func (t *Table) Roll(rng RandomSource) (Result, error) {
	if rng == nil {
		rng = DefaultRNG()
	}
	return t.Draw(rng.Float64()*TotalWeight, rng)
}

func (t *Table) result(tier Tier, rng RandomSource, fallback bool) Result {
	p := t.profiles[tier]
	return Result{
		Tier:     tier,
		Rating:   p.Rating,
		Score:    p.ScoreMin + Intn(rng, p.ScoreMax-p.ScoreMin),
		Visual:   p.Visual,
		Fallback: fallback,
	}
}
