package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xtding233/gacha-mint/internal/ledger"
	"github.com/xtding233/gacha-mint/internal/wallet"
)

// maxFaucetADA caps a single faucet request.
const maxFaucetADA = 10_000

type walletResp struct {
	Address string `json:"address"`
	KeyHash string `json:"key_hash"`
}

type balanceResp struct {
	Address  string          `json:"address"`
	Lovelace ledger.Lovelace `json:"lovelace"`
	ADA      float64         `json:"ada"`
}

// ConnectWallet handles POST /wallets. The server holds the session key; an
// empty address is derived from it.
func (h *Handler) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	sess, err := wallet.Generate(req.Address, h.orch.Machine().Network == "mainnet")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.dev != nil {
		if err := h.dev.Bind(sess.Address(), sess.PaymentKeyHash()); err != nil {
			if errors.Is(err, ledger.ErrAddressBound) {
				writeError(w, http.StatusConflict, "address is owned by another key")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := h.wallets.Connect(sess); err != nil {
		if errors.Is(err, wallet.ErrAlreadyConnected) {
			writeError(w, http.StatusConflict, "wallet already connected")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("wallet connected", "address", wallet.Short(sess.Address()))
	writeJSON(w, http.StatusCreated, walletResp{
		Address: sess.Address(),
		KeyHash: hex.EncodeToString(sess.PaymentKeyHash()),
	})
}

// DisconnectWallet handles DELETE /wallets/{address}.
func (h *Handler) DisconnectWallet(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !h.wallets.Disconnect(address) {
		writeError(w, http.StatusNotFound, "wallet not connected")
		return
	}
	h.logger.Info("wallet disconnected", "address", wallet.Short(address))
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles GET /wallets/{address}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	bal, err := h.ledger.SpendableBalance(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, balanceResp{Address: address, Lovelace: bal, ADA: bal.ADA()})
}

// Faucet handles POST /wallets/{address}/faucet on development ledgers.
func (h *Handler) Faucet(w http.ResponseWriter, r *http.Request) {
	if h.dev == nil {
		writeError(w, http.StatusNotFound, "faucet is only available on the memory network")
		return
	}
	var req struct {
		ADA float64 `json:"ada"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	amount, err := ledger.FromADA(req.ADA)
	if err != nil || amount == 0 || req.ADA > maxFaucetADA {
		writeError(w, http.StatusUnprocessableEntity, "ada must be between 0 and 10000")
		return
	}
	address := strings.TrimSpace(chi.URLParam(r, "address"))
	h.dev.Fund(address, amount)

	bal, err := h.ledger.SpendableBalance(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, balanceResp{Address: address, Lovelace: bal, ADA: bal.ADA()})
}
