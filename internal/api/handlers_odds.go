package api

import (
	"net/http"

	"github.com/xtding233/gacha-mint/internal/gacha"
	"github.com/xtding233/gacha-mint/internal/ledger"
)

const maxSimulate = 1_000_000

type oddsTier struct {
	Tier     gacha.Tier `json:"tier"`
	Rating   string     `json:"rating"`
	Weight   int        `json:"weight"`
	Lo       float64    `json:"lo"`
	Hi       float64    `json:"hi"`
	ScoreMin int        `json:"score_min"`
	ScoreMax int        `json:"score_max"`
	Image    string     `json:"image"`
	Visual   string     `json:"visual,omitempty"`
}

type oddsResp struct {
	Network    string          `json:"network"`
	PullCost   ledger.Lovelace `json:"pull_cost"`
	Tiers      []oddsTier      `json:"tiers"`
	Simulation *gacha.Odds     `json:"simulation,omitempty"`
}

// GetOdds handles GET /odds. ?simulate=N adds a Monte Carlo run of N rolls.
func (h *Handler) GetOdds(w http.ResponseWriter, r *http.Request) {
	m := h.orch.Machine()
	resp := oddsResp{Network: m.Network, PullCost: m.PullCost}
	for _, tier := range gacha.Priority {
		p := m.Table.Profile(tier)
		lo, hi := m.Table.Bounds(tier)
		resp.Tiers = append(resp.Tiers, oddsTier{
			Tier:     tier,
			Rating:   p.Rating,
			Weight:   p.Weight,
			Lo:       lo,
			Hi:       hi,
			ScoreMin: p.ScoreMin,
			ScoreMax: p.ScoreMax,
			Image:    p.Image,
			Visual:   p.Visual,
		})
	}

	n, ok, msg := parseInt(r, "simulate")
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if ok {
		if n <= 0 || n > maxSimulate {
			writeError(w, http.StatusBadRequest, "simulate must be between 1 and 1000000")
			return
		}
		odds, err := gacha.Simulate(m.Table, n, gacha.DefaultRNG())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Simulation = &odds
	}
	writeJSON(w, http.StatusOK, resp)
}
