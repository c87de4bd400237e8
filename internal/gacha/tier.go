package gacha

import (
	"fmt"
	"strings"
)

// Tier is a reward rarity bucket. Higher values are rarer.
type Tier int

const (
	Common Tier = iota
	Rare
	Epic
	Legendary
)

// Priority is the fixed bucketing order. Rarer tiers own the low end of the
// roll range, so reordering this changes which tier owns boundary values.
var Priority = [...]Tier{Legendary, Epic, Rare, Common}

// AllTiers returns every tier from lowest to highest rarity.
func AllTiers() []Tier {
	return []Tier{Common, Rare, Epic, Legendary}
}

func (t Tier) String() string {
	switch t {
	case Common:
		return "Common"
	case Rare:
		return "Rare"
	case Epic:
		return "Epic"
	case Legendary:
		return "Legendary"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	return t >= Common && t <= Legendary
}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common":
		return Common, nil
	case "rare":
		return Rare, nil
	case "epic":
		return Epic, nil
	case "legendary":
		return Legendary, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// MarshalText renders the tier name, so tiers read naturally in JSON and YAML.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Profile is the static configuration of one tier.
type Profile struct {
	Tier     Tier
	Weight   int    // probability mass out of 100
	Rating   string // display letter, e.g. "S"
	ScoreMin int    // inclusive
	ScoreMax int    // exclusive
	Image    string // image reference for minted tokens
	Visual   string // presentation hint only
}

// DefaultProfiles returns the stock machine odds.
func DefaultProfiles() []Profile {
	return []Profile{
		{Tier: Legendary, Weight: 1, Rating: "S", ScoreMin: 95, ScoreMax: 100, Image: "ipfs://QmLegendary...", Visual: "🌟"},
		{Tier: Epic, Weight: 9, Rating: "A", ScoreMin: 80, ScoreMax: 95, Image: "ipfs://QmEpic...", Visual: "💫"},
		{Tier: Rare, Weight: 20, Rating: "B", ScoreMin: 60, ScoreMax: 80, Image: "ipfs://QmRare...", Visual: "✨"},
		{Tier: Common, Weight: 70, Rating: "C", ScoreMin: 40, ScoreMax: 60, Image: "ipfs://QmCommon...", Visual: "⭐"},
	}
}
