package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xtding233/gacha-mint/internal/redeem"
)

// CreatePull handles POST /pulls. It blocks until the pull reaches a terminal state.
func (h *Handler) CreatePull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var sess redeem.Session
	if s, ok := h.wallets.Lookup(strings.TrimSpace(req.Address)); ok {
		sess = s
	}
	rec, err := h.orch.Pull(r.Context(), sess)
	if err != nil {
		pe, ok := redeem.AsPullError(err)
		if !ok {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, pullStatus(pe.Kind), errorBody{
			Kind:      string(pe.Kind),
			Error:     pe.Error(),
			Stage:     pe.Stage.String(),
			Shortfall: uint64(pe.Shortfall),
			PaymentTx: pe.PaymentTx,
			PullID:    pe.PullID,
		})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func pullStatus(kind redeem.Kind) int {
	switch kind {
	case redeem.KindNoWalletConnected:
		return http.StatusUnauthorized
	case redeem.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case redeem.KindPullAlreadyInProgress:
		return http.StatusConflict
	case redeem.KindPullCanceled:
		return http.StatusRequestTimeout
	case redeem.KindPaymentSubmissionFailed, redeem.KindPaymentConfirmationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
