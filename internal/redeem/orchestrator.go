// Package redeem runs the pay, draw and mint pipeline of a single pull.
package redeem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xtding233/gacha-mint/internal/config"
	"github.com/xtding233/gacha-mint/internal/gacha"
	"github.com/xtding233/gacha-mint/internal/ledger"
	"github.com/xtding233/gacha-mint/internal/metrics"
	"github.com/xtding233/gacha-mint/internal/token"
	"github.com/xtding233/gacha-mint/internal/wallet"
)

// Session is a connected identity able to witness transactions.
type Session interface {
	Address() string
	PaymentKeyHash() []byte
	Sign(ctx context.Context, tx *ledger.Tx) (*ledger.SignedTx, error)
}

// Receipt is the outcome of a completed pull.
type Receipt struct {
	PullID      string           `json:"pull_id"`
	Address     string           `json:"address"`
	Draw        gacha.Result     `json:"draw"`
	Token       token.Descriptor `json:"token"`
	PaymentTx   string           `json:"payment_tx"`
	MintTx      string           `json:"mint_tx"`
	PolicyID    string           `json:"policy_id"`
	Unit        string           `json:"unit"`
	ExplorerURL string           `json:"explorer_url,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

const drainPoll = 20 * time.Millisecond

// Orchestrator drives pulls against a ledger. It is safe for concurrent use;
// at most one pull per address is in flight.
type Orchestrator struct {
	machine *config.Machine
	ledger  ledger.Client
	metrics *metrics.PullMetrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	observer   func(pullID string, from, to State)
	onComplete func(Receipt)

	rngMu sync.Mutex
	rng   gacha.RandomSource

	mu       sync.Mutex
	inFlight map[string]Pending // by address
}

// Pending describes a pull that has not finished yet. PaymentTx is set once
// the payment was submitted.
type Pending struct {
	PullID    string `json:"pull_id"`
	Address   string `json:"address"`
	PaymentTx string `json:"payment_tx,omitempty"`
}

// Option customises the orchestrator.
type Option func(*Orchestrator)

// WithRNG overrides the randomness used for rolls and token names.
func WithRNG(rng gacha.RandomSource) Option {
	return func(o *Orchestrator) { o.rng = rng }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *metrics.PullMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger for transitions and failures. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock sets the function used for timestamps and validity slots.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.now = clock }
}

// WithObserver is called synchronously on every state transition.
func WithObserver(fn func(pullID string, from, to State)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithCompletion is called once per completed pull.
func WithCompletion(fn func(Receipt)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New constructs an orchestrator for machine using client for ledger access.
func New(machine *config.Machine, client ledger.Client, opts ...Option) (*Orchestrator, error) {
	if machine == nil || machine.Table == nil {
		return nil, fmt.Errorf("redeem: machine configuration required")
	}
	if client == nil {
		return nil, fmt.Errorf("redeem: ledger client required")
	}
	o := &Orchestrator{
		machine:  machine,
		ledger:   client,
		metrics:  metrics.Pulls(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("gacha/redeem"),
		now:      time.Now,
		rng:      gacha.DefaultRNG(),
		inFlight: make(map[string]Pending),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.rng == nil {
		o.rng = gacha.DefaultRNG()
	}
	return o, nil
}

// Machine returns the configuration the orchestrator runs with.
func (o *Orchestrator) Machine() *config.Machine { return o.machine }

// InFlight reports whether address has a pull between request and terminal state.
func (o *Orchestrator) InFlight(address string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inFlight[strings.TrimSpace(address)]
	return ok
}

// Pending lists the pulls currently in flight, ordered by address.
func (o *Orchestrator) Pending() []Pending {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Pending, 0, len(o.inFlight))
	for _, p := range o.inFlight {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Drain waits until no pull is in flight or ctx is done, and returns the
// pulls still running at that point.
func (o *Orchestrator) Drain(ctx context.Context) []Pending {
	tick := time.NewTicker(drainPoll)
	defer tick.Stop()
	for {
		left := o.Pending()
		if len(left) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return left
		case <-tick.C:
		}
	}
}

// pull is the per-invocation state of one pipeline run.
type pull struct {
	id      string
	sess    Session
	address string
	state   State
	started time.Time
	guarded bool

	paymentTx string
	draw      gacha.Result
	desc      token.Descriptor
	policyID  string
	unit      string
	mintTx    string
	receipt   *Receipt
}

type stepFunc func(ctx context.Context, p *pull) (State, *PullError)

// Pull runs one pull for sess: pay, wait for the payment, draw, mint and wait
// for the mint. The caller's ctx can abandon the pull only while preconditions
// are checked; once payment starts the pipeline runs to a verdict.
func (o *Orchestrator) Pull(ctx context.Context, sess Session) (*Receipt, error) {
	p := &pull{id: uuid.NewString(), sess: sess, state: Idle, started: o.now()}

	ctx, span := o.tracer.Start(ctx, "redeem.pull",
		trace.WithAttributes(attribute.String("pull.id", p.id)))
	defer span.End()

	o.metrics.Begin()
	defer o.metrics.End()
	defer o.release(p)

	steps := map[State]stepFunc{
		Idle:                        o.begin,
		ValidatingPreconditions:     o.validate,
		Paying:                      o.pay,
		AwaitingPaymentConfirmation: o.awaitPayment,
		Drawing:                     o.drawReward,
		Minting:                     o.mint,
		AwaitingMintConfirmation:    o.awaitMint,
	}

	detached := false
	for !p.state.Terminal() {
		if p.state >= Paying && !detached {
			ctx = context.WithoutCancel(ctx)
			detached = true
		}
		next, perr := steps[p.state](ctx, p)
		if perr != nil {
			return nil, o.fail(span, p, perr)
		}
		o.enter(span, p, next)
	}

	elapsed := o.now().Sub(p.started)
	o.metrics.RecordPull("completed", elapsed)
	span.SetAttributes(attribute.String("mint.tx", p.mintTx))
	span.SetStatus(codes.Ok, "pull completed")
	o.logger.Info("pull completed",
		"pull_id", p.id,
		"address", wallet.Short(p.address),
		"tier", p.draw.Tier.String(),
		"score", p.draw.Score,
		"payment_tx", p.paymentTx,
		"mint_tx", p.mintTx,
		"duration", elapsed)
	if o.onComplete != nil {
		o.onComplete(*p.receipt)
	}
	return p.receipt, nil
}

func (o *Orchestrator) enter(span trace.Span, p *pull, next State) {
	from := p.state
	p.state = next
	span.AddEvent("state", trace.WithAttributes(attribute.String("state", next.String())))
	o.logger.Debug("pull transition", "pull_id", p.id, "from", from.String(), "to", next.String())
	if o.observer != nil {
		o.observer(p.id, from, next)
	}
}

func (o *Orchestrator) fail(span trace.Span, p *pull, perr *PullError) error {
	perr.PullID = p.id
	perr.Stage = p.state
	if p.paymentTx != "" {
		perr.PaymentTx = p.paymentTx
	}
	o.enter(span, p, Errored)

	o.metrics.RecordError(string(perr.Kind))
	o.metrics.RecordPull(string(perr.Kind), o.now().Sub(p.started))
	span.RecordError(perr)
	span.SetStatus(codes.Error, perr.Error())

	attrs := []any{
		"pull_id", p.id,
		"address", wallet.Short(p.address),
		"kind", string(perr.Kind),
		"stage", perr.Stage.String(),
		"error", perr.Error(),
	}
	switch {
	case perr.Paid():
		o.logger.Error("pull failed after payment; reward not minted", append(attrs, "payment_tx", perr.PaymentTx)...)
	case perr.Stage <= ValidatingPreconditions:
		o.logger.Info("pull rejected", attrs...)
	default:
		o.logger.Error("pull failed", attrs...)
	}
	return perr
}

// acquire claims address for p. It fails if another pull holds it.
func (o *Orchestrator) acquire(p *pull) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[p.address]; busy {
		return false
	}
	o.inFlight[p.address] = Pending{PullID: p.id, Address: p.address}
	p.guarded = true
	return true
}

func (o *Orchestrator) release(p *pull) {
	if !p.guarded {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[p.address].PullID == p.id {
		delete(o.inFlight, p.address)
	}
	p.guarded = false
}

func (o *Orchestrator) begin(ctx context.Context, p *pull) (State, *PullError) {
	return ValidatingPreconditions, nil
}

func (o *Orchestrator) validate(ctx context.Context, p *pull) (State, *PullError) {
	if p.sess == nil || strings.TrimSpace(p.sess.Address()) == "" {
		return Errored, &PullError{Kind: KindNoWalletConnected}
	}
	p.address = strings.TrimSpace(p.sess.Address())
	if !o.acquire(p) {
		return Errored, &PullError{Kind: KindPullAlreadyInProgress}
	}

	required := o.machine.PullCost
	balance, err := o.ledger.SpendableBalance(ctx, p.address)
	if err != nil {
		if ctx.Err() != nil {
			return Errored, &PullError{Kind: KindPullCanceled, Err: ctx.Err()}
		}
		return Errored, &PullError{Kind: KindPaymentSubmissionFailed, Err: fmt.Errorf("query balance: %w", err)}
	}
	if balance < required {
		return Errored, &PullError{Kind: KindInsufficientFunds, Shortfall: required - balance}
	}
	if err := ctx.Err(); err != nil {
		return Errored, &PullError{Kind: KindPullCanceled, Err: err}
	}
	return Paying, nil
}

func (o *Orchestrator) pay(ctx context.Context, p *pull) (State, *PullError) {
	tx, err := o.ledger.BuildPayment(ctx, p.address, o.machine.Treasury, o.machine.PullCost)
	if err != nil {
		return Errored, &PullError{Kind: KindPaymentSubmissionFailed, Err: fmt.Errorf("build payment: %w", err)}
	}
	signed, err := p.sess.Sign(ctx, tx)
	if err != nil {
		return Errored, &PullError{Kind: KindPaymentSubmissionFailed, Err: fmt.Errorf("sign payment: %w", err)}
	}
	hash, err := o.ledger.Submit(ctx, signed)
	if err != nil {
		return Errored, &PullError{Kind: KindPaymentSubmissionFailed, Err: fmt.Errorf("submit payment: %w", err)}
	}
	p.paymentTx = hash
	o.mu.Lock()
	if cur := o.inFlight[p.address]; cur.PullID == p.id {
		cur.PaymentTx = hash
		o.inFlight[p.address] = cur
	}
	o.mu.Unlock()
	o.logger.Info("payment submitted", "pull_id", p.id, "address", wallet.Short(p.address), "payment_tx", hash)
	return AwaitingPaymentConfirmation, nil
}

func (o *Orchestrator) awaitPayment(ctx context.Context, p *pull) (State, *PullError) {
	if reason, err := o.confirm(ctx, p.paymentTx); err != nil {
		return Errored, &PullError{Kind: KindPaymentConfirmationFailed, Reason: reason, Err: err}
	}
	return Drawing, nil
}

func (o *Orchestrator) drawReward(ctx context.Context, p *pull) (State, *PullError) {
	o.rngMu.Lock()
	res, err := o.machine.Table.Roll(o.rng)
	o.rngMu.Unlock()
	if err != nil {
		return Errored, &PullError{Kind: KindMintSubmissionFailed, Err: fmt.Errorf("draw: %w", err)}
	}
	if res.Fallback {
		o.logger.Warn("draw matched no tier; using fallback", "pull_id", p.id, "tier", res.Tier.String())
	}
	o.metrics.RecordDraw(res.Tier.String(), res.Fallback)
	p.draw = res
	return Minting, nil
}

func (o *Orchestrator) mint(ctx context.Context, p *pull) (State, *PullError) {
	now := o.now()
	slots := o.machine.Slots
	policy, err := ledger.NewPolicy(p.sess.PaymentKeyHash(), slots.Slot(now.Add(o.machine.PolicyLock)))
	if err != nil {
		return Errored, &PullError{Kind: KindMintSubmissionFailed, Err: fmt.Errorf("minting policy: %w", err)}
	}
	policyID, err := policy.ID()
	if err != nil {
		return Errored, &PullError{Kind: KindMintSubmissionFailed, Err: fmt.Errorf("minting policy: %w", err)}
	}

	o.rngMu.Lock()
	desc := token.New(p.draw, o.machine.Table.Profile(p.draw.Tier).Image, o.rng)
	o.rngMu.Unlock()

	spec := ledger.MintSpec{
		Policy:    policy,
		PolicyID:  policyID,
		AssetName: desc.AssetName(),
		Quantity:  1,
		Metadata:  desc.Metadata(policyID),
		ValidTo:   slots.Slot(now.Add(o.machine.MintValidity)),
	}
	tx, err := o.ledger.BuildMint(ctx, p.address, spec)
	if err != nil {
		return Errored, &PullError{Kind: KindMintSubmissionFailed, Err: fmt.Errorf("build mint: %w", err)}
	}
	signed, err := p.sess.Sign(ctx, tx)
	if err != nil {
		return Errored, &PullError{Kind: KindMintSubmissionFailed, Err: fmt.Errorf("sign mint: %w", err)}
	}
	hash, err := o.ledger.Submit(ctx, signed)
	if err != nil {
		return Errored, &PullError{Kind: KindMintSubmissionFailed, Err: fmt.Errorf("submit mint: %w", err)}
	}
	p.desc = desc
	p.policyID = policyID
	p.unit = spec.Unit()
	p.mintTx = hash
	return AwaitingMintConfirmation, nil
}

func (o *Orchestrator) awaitMint(ctx context.Context, p *pull) (State, *PullError) {
	if reason, err := o.confirm(ctx, p.mintTx); err != nil {
		return Errored, &PullError{Kind: KindMintConfirmationFailed, Reason: reason, Err: err}
	}
	p.receipt = &Receipt{
		PullID:      p.id,
		Address:     p.address,
		Draw:        p.draw,
		Token:       p.desc,
		PaymentTx:   p.paymentTx,
		MintTx:      p.mintTx,
		PolicyID:    p.policyID,
		Unit:        p.unit,
		ExplorerURL: o.machine.ExplorerLink(p.mintTx),
		StartedAt:   p.started,
		CompletedAt: o.now(),
	}
	return Completed, nil
}

// confirm waits for txHash under the configured timeout and classifies failures.
func (o *Orchestrator) confirm(ctx context.Context, txHash string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.machine.ConfirmTimeout)
	defer cancel()
	err := o.ledger.AwaitConfirmation(ctx, txHash)
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, err
	default:
		return ReasonRejected, err
	}
}
