package token

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/xtding233/gacha-mint/internal/gacha"
)

// MetadataLabel is the transaction metadata label for NFT descriptors.
const MetadataLabel = 721

const (
	namePrefix = "GACHA"
	suffixMax  = 1000 // suffix is drawn from [0, suffixMax)
)

// Attributes are the reward fields carried on chain.
type Attributes struct {
	Tier   gacha.Tier `json:"tier"`
	Score  int        `json:"score"`
	Rating string     `json:"rating"`
}

// Descriptor defines the minted token of one draw.
type Descriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Attributes  Attributes `json:"attributes"`
}

// New derives a descriptor from res. The name suffix is random and only
// advisory; collisions are acceptable.
func New(res gacha.Result, image string, rng gacha.RandomSource) Descriptor {
	return Descriptor{
		Name:        fmt.Sprintf("%s%s%d", namePrefix, res.Rating, gacha.Intn(rng, suffixMax)),
		Description: Describe(res),
		Image:       image,
		Attributes: Attributes{
			Tier:   res.Tier,
			Score:  res.Score,
			Rating: res.Rating,
		},
	}
}

// Describe renders "{tier}|{score}pts|{rating}".
func Describe(res gacha.Result) string {
	return fmt.Sprintf("%s|%dpts|%s", res.Tier, res.Score, res.Rating)
}

// ParseDescription reverses Describe.
func ParseDescription(s string) (Attributes, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 || !strings.HasSuffix(parts[1], "pts") {
		return Attributes{}, fmt.Errorf("token: malformed description %q", s)
	}
	tier, err := gacha.ParseTier(parts[0])
	if err != nil {
		return Attributes{}, fmt.Errorf("token: %w", err)
	}
	score, err := strconv.Atoi(strings.TrimSuffix(parts[1], "pts"))
	if err != nil {
		return Attributes{}, fmt.Errorf("token: bad score in %q", s)
	}
	return Attributes{Tier: tier, Score: score, Rating: parts[2]}, nil
}

// AssetName is the hex-encoded on-chain asset name.
func (d Descriptor) AssetName() string {
	return hex.EncodeToString([]byte(d.Name))
}

// Metadata returns the label-721 payload keyed by policy id and token name.
func (d Descriptor) Metadata(policyID string) map[uint64]any {
	return map[uint64]any{
		MetadataLabel: map[string]any{
			policyID: map[string]any{
				d.Name: map[string]any{
					"name":        d.Name,
					"description": d.Description,
					"image":       d.Image,
					"attributes": map[string]any{
						"tier":   d.Attributes.Tier.String(),
						"score":  int64(d.Attributes.Score),
						"rating": d.Attributes.Rating,
					},
				},
			},
		},
	}
}
