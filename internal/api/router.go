// Package api implements the HTTP surface of the gacha machine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtding233/gacha-mint/internal/ledger"
	"github.com/xtding233/gacha-mint/internal/redeem"
	"github.com/xtding233/gacha-mint/internal/wallet"
)

// DevLedger is implemented by ledgers that can bind keys and hand out test
// funds. Only the in-memory ledger does.
type DevLedger interface {
	Fund(address string, amount ledger.Lovelace)
	Bind(address string, keyHash []byte) error
}

// Handler holds all API handler state.
type Handler struct {
	orch    *redeem.Orchestrator
	wallets *wallet.Registry
	ledger  ledger.Client
	dev     DevLedger
	limiter *RateLimiter
	metrics http.Handler
	logger  *slog.Logger
	proxied bool
}

// HandlerOption customises the handler.
type HandlerOption func(*Handler)

// WithDevLedger enables key binding on connect and the faucet endpoint.
func WithDevLedger(d DevLedger) HandlerOption {
	return func(h *Handler) { h.dev = d }
}

// WithRateLimiter throttles pull requests per client.
func WithRateLimiter(l *RateLimiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// WithMetricsHandler overrides the /metrics handler.
func WithMetricsHandler(m http.Handler) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the request logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// WithTrustedProxy makes Router take the client address from X-Real-IP and
// X-Forwarded-For. Enable it only behind a proxy that overwrites them.
func WithTrustedProxy() HandlerOption {
	return func(h *Handler) { h.proxied = true }
}

// NewHandler creates a new API handler.
func NewHandler(orch *redeem.Orchestrator, wallets *wallet.Registry, client ledger.Client, opts ...HandlerOption) *Handler {
	h := &Handler{
		orch:    orch,
		wallets: wallets,
		ledger:  client,
		metrics: promhttp.Handler(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the API routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics)
	r.Get("/odds", h.GetOdds)

	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", h.ConnectWallet)
		r.Delete("/{address}", h.DisconnectWallet)
		r.Get("/{address}/balance", h.GetBalance)
		r.Post("/{address}/faucet", h.Faucet)
	})

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Post("/pulls", h.CreatePull)
	})
}

// Router returns a ready-to-serve chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if h.proxied {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	h.Routes(r)
	return r
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"network": h.orch.Machine().Network,
		"wallets": h.wallets.Len(),
	})
}
