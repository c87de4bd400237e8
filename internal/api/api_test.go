package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xtding233/gacha-mint/internal/config"
	"github.com/xtding233/gacha-mint/internal/gacha"
	"github.com/xtding233/gacha-mint/internal/ledger"
	"github.com/xtding233/gacha-mint/internal/metrics"
	"github.com/xtding233/gacha-mint/internal/redeem"
	"github.com/xtding233/gacha-mint/internal/wallet"
)

type testServer struct {
	srv    *httptest.Server
	ledger *ledger.MemoryLedger
}

func setup(t *testing.T, opts ...HandlerOption) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Network = "memory"
	m, err := config.Build(cfg)
	require.NoError(t, err)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	led := ledger.NewMemoryLedger(m.Slots)
	orch, err := redeem.New(m, led,
		redeem.WithMetrics(metrics.New(nil)),
		redeem.WithLogger(discard),
		redeem.WithRNG(gacha.NewSeededRNG(3)))
	require.NoError(t, err)

	base := []HandlerOption{WithDevLedger(led), WithLogger(discard)}
	h := NewHandler(orch, wallet.NewRegistry(), led, append(base, opts...)...)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, ledger: led}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (ts *testServer) connect(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/wallets", map[string]string{})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var w walletResp
	require.NoError(t, json.Unmarshal(body, &w))
	require.NotEmpty(t, w.Address)
	require.Len(t, w.KeyHash, 56)
	return w.Address
}

func TestPullFlow(t *testing.T) {
	ts := setup(t)
	addr := ts.connect(t)

	resp, body := ts.do(t, http.MethodPost, "/wallets/"+addr+"/faucet", map[string]float64{"ada": 12})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var bal balanceResp
	require.NoError(t, json.Unmarshal(body, &bal))
	require.Equal(t, ledger.Lovelace(12_000_000), bal.Lovelace)

	resp, body = ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": addr})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var rec redeem.Receipt
	require.NoError(t, json.Unmarshal(body, &rec))
	require.Equal(t, addr, rec.Address)
	require.NotEmpty(t, rec.PaymentTx)
	require.NotEmpty(t, rec.MintTx)
	require.Equal(t, rec.Draw.Tier, rec.Token.Attributes.Tier)
	require.Equal(t, map[string]int64{rec.Unit: 1}, ts.ledger.Assets(addr))

	resp, body = ts.do(t, http.MethodGet, "/wallets/"+addr+"/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &bal))
	require.Equal(t, 7.0, bal.ADA)

	resp, _ = ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": addr})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// 2 ADA left
	resp, body = ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": addr})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	require.Equal(t, string(redeem.KindInsufficientFunds), eb.Kind)
	require.Equal(t, uint64(3_000_000), eb.Shortfall)
	require.Equal(t, "ValidatingPreconditions", eb.Stage)
	require.NotEmpty(t, eb.PullID)
	require.Empty(t, eb.PaymentTx)
}

func TestPullWithoutWallet(t *testing.T) {
	ts := setup(t)
	resp, body := ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": "addr_test1vnobody"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	require.Equal(t, string(redeem.KindNoWalletConnected), eb.Kind)

	resp, _ = ts.do(t, http.MethodPost, "/pulls", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnectAndDisconnect(t *testing.T) {
	ts := setup(t)
	resp, body := ts.do(t, http.MethodPost, "/wallets", map[string]string{"address": "addr_test1vplayer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = ts.do(t, http.MethodPost, "/wallets", map[string]string{"address": "addr_test1vplayer"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/wallets/addr_test1vplayer", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/wallets/addr_test1vplayer", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": "addr_test1vplayer"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReconnectCannotTakeOverAddress(t *testing.T) {
	ts := setup(t)
	resp, body := ts.do(t, http.MethodPost, "/wallets", map[string]string{"address": "addr_test1vplayer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, _ = ts.do(t, http.MethodPost, "/wallets/addr_test1vplayer/faucet", map[string]float64{"ada": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, "/wallets/addr_test1vplayer", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/wallets", map[string]string{"address": "addr_test1vplayer"})
	require.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	require.Contains(t, string(body), "owned by another key")

	resp, _ = ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": "addr_test1vplayer"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	bal, err := ts.ledger.SpendableBalance(t.Context(), "addr_test1vplayer")
	require.NoError(t, err)
	require.Equal(t, ledger.Lovelace(20_000_000), bal)
}

func TestFaucetValidation(t *testing.T) {
	ts := setup(t)
	addr := ts.connect(t)
	for _, ada := range []float64{0, -1, 20_000} {
		resp, _ := ts.do(t, http.MethodPost, "/wallets/"+addr+"/faucet", map[string]float64{"ada": ada})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, ada)
	}
}

func TestOdds(t *testing.T) {
	ts := setup(t)
	resp, body := ts.do(t, http.MethodGet, "/odds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var odds oddsResp
	require.NoError(t, json.Unmarshal(body, &odds))
	require.Equal(t, "memory", odds.Network)
	require.Equal(t, ledger.Lovelace(5_000_000), odds.PullCost)
	require.Len(t, odds.Tiers, 4)
	require.Equal(t, gacha.Legendary, odds.Tiers[0].Tier)
	require.Equal(t, 0.0, odds.Tiers[0].Lo)
	require.Equal(t, 1.0, odds.Tiers[0].Hi)
	require.Equal(t, gacha.Common, odds.Tiers[3].Tier)
	require.Equal(t, 100.0, odds.Tiers[3].Hi)
	require.Nil(t, odds.Simulation)

	resp, body = ts.do(t, http.MethodGet, "/odds?simulate=2000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &odds))
	require.NotNil(t, odds.Simulation)
	require.Equal(t, 2000, odds.Simulation.Trials)
	hits := 0
	for _, tier := range odds.Simulation.Tiers {
		hits += tier.Hits
	}
	require.Equal(t, 2000, hits)

	for _, q := range []string{"abc", "0", "5000000"} {
		resp, _ = ts.do(t, http.MethodGet, "/odds?simulate="+q, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := setup(t)
	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"status":"ok"`)

	resp, _ = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPullRateLimited(t *testing.T) {
	ts := setup(t, WithRateLimiter(NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})))
	resp, _ := ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": "x"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, "/pulls", map[string]string{"address": "x"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// other routes are not limited
	resp, _ = ts.do(t, http.MethodGet, "/odds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})
	rl.clockNow = func() time.Time { return now }

	require.True(t, rl.allow("a"))
	require.False(t, rl.allow("a"))
	require.True(t, rl.allow("b"))

	now = now.Add(10 * time.Minute)
	require.True(t, rl.allow("a"))
	rl.mu.Lock()
	require.Len(t, rl.visitors, 1)
	rl.mu.Unlock()
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	require.Equal(t, "10.0.0.1", clientID(req))

	// forwarding headers are resolved by middleware.RealIP, never here
	req.Header.Set("X-Forwarded-For", "192.0.2.7, 10.0.0.2")
	req.Header.Set("X-Real-IP", "198.51.100.4")
	require.Equal(t, "10.0.0.1", clientID(req))

	req.RemoteAddr = "10.0.0.9"
	require.Equal(t, "10.0.0.9", clientID(req))
}

func TestPullRateLimitIgnoresSpoofedHeaders(t *testing.T) {
	ts := setup(t, WithRateLimiter(NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})))
	codes := make([]int, 0, 2)
	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/pulls", bytes.NewReader([]byte(`{"address":"x"}`)))
		require.NoError(t, err)
		req.Header.Set("X-Real-IP", ip)
		resp, err := ts.srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	require.Equal(t, []int{http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestPullStatus(t *testing.T) {
	cases := map[redeem.Kind]int{
		redeem.KindNoWalletConnected:         http.StatusUnauthorized,
		redeem.KindInsufficientFunds:         http.StatusPaymentRequired,
		redeem.KindPullAlreadyInProgress:     http.StatusConflict,
		redeem.KindPullCanceled:              http.StatusRequestTimeout,
		redeem.KindPaymentSubmissionFailed:   http.StatusBadGateway,
		redeem.KindPaymentConfirmationFailed: http.StatusBadGateway,
		redeem.KindMintSubmissionFailed:      http.StatusInternalServerError,
		redeem.KindMintConfirmationFailed:    http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, pullStatus(kind), kind)
	}
}
