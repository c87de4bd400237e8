package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrBadWitness          = errors.New("ledger: missing or invalid witness")
	ErrPolicyViolation     = errors.New("ledger: minting policy not satisfied")
	ErrAddressBound        = errors.New("ledger: address bound to another key")
)

// paymentTTL is how many slots a built payment stays valid.
const paymentTTL = 7200

type memTx struct {
	tx        *Tx
	confirmAt time.Time
	rejected  bool
}

// MemoryLedger is an in-process ledger used for local runs and tests. It
// checks witnesses and minting policies, applies effects on submit and
// reports confirmation after a configurable delay.
type MemoryLedger struct {
	slots        SlotConfig
	now          func() time.Time
	confirmDelay time.Duration

	mu       sync.Mutex
	nonce    uint64
	balances map[string]Lovelace
	assets   map[string]map[string]int64 // address -> unit -> quantity
	owners   map[string][]byte           // address -> bound key hash
	txs      map[string]*memTx
	reject   func(*Tx) bool
}

// MemoryOption customises a MemoryLedger.
type MemoryOption func(*MemoryLedger)

// WithConfirmDelay sets how long submitted transactions take to confirm.
func WithConfirmDelay(d time.Duration) MemoryOption {
	return func(l *MemoryLedger) { l.confirmDelay = d }
}

// WithLedgerClock sets the wall clock used for slots and confirmation.
func WithLedgerClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLedger) { l.now = now }
}

// NewMemoryLedger returns an empty ledger using slots for validity checks.
func NewMemoryLedger(slots SlotConfig, opts ...MemoryOption) *MemoryLedger {
	l := &MemoryLedger{
		slots:    slots,
		now:      time.Now,
		balances: make(map[string]Lovelace),
		assets:   make(map[string]map[string]int64),
		owners:   make(map[string][]byte),
		txs:      make(map[string]*memTx),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fund credits address with amount.
func (l *MemoryLedger) Fund(address string, amount Lovelace) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] += amount
}

// Bind restricts spending from address to witnesses of keyHash. An address
// keeps its first owner; binding it to a different key fails.
func (l *MemoryLedger) Bind(address string, keyHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if owner, ok := l.owners[address]; ok {
		if bytes.Equal(owner, keyHash) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrAddressBound, address)
	}
	l.owners[address] = append([]byte(nil), keyHash...)
	return nil
}

// RejectWhen installs a predicate; matching transactions are accepted on
// submit but reported as rejected on confirmation, with no effects applied.
func (l *MemoryLedger) RejectWhen(fn func(*Tx) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reject = fn
}

// Assets returns a copy of the native assets held by address.
func (l *MemoryLedger) Assets(address string) map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.assets[address]))
	for unit, qty := range l.assets[address] {
		out[unit] = qty
	}
	return out
}

// Transaction returns a submitted transaction by hash.
func (l *MemoryLedger) Transaction(hash string) (*Tx, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.txs[hash]
	if !ok {
		return nil, false
	}
	return m.tx, true
}

func (l *MemoryLedger) SpendableBalance(ctx context.Context, address string) (Lovelace, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address], nil
}

func (l *MemoryLedger) BuildPayment(ctx context.Context, from, to string, amount Lovelace) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("ledger: payment requires from and to addresses")
	}
	if amount == 0 {
		return nil, fmt.Errorf("ledger: payment amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, l.balances[from], amount)
	}
	l.nonce++
	return &Tx{
		Kind:    KindPayment,
		From:    from,
		To:      to,
		Amount:  amount,
		ValidTo: l.slots.Slot(l.now()) + paymentTTL,
		Nonce:   l.nonce,
	}, nil
}

func (l *MemoryLedger) BuildMint(ctx context.Context, from string, spec MintSpec) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("ledger: mint requires a recipient address")
	}
	if spec.Quantity <= 0 {
		return nil, fmt.Errorf("ledger: mint quantity must be positive")
	}
	if spec.AssetName == "" || spec.PolicyID == "" {
		return nil, fmt.Errorf("ledger: mint requires policy id and asset name")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nonce++
	return &Tx{
		Kind:    KindMint,
		From:    from,
		Mint:    &spec,
		ValidTo: spec.ValidTo,
		Nonce:   l.nonce,
	}, nil
}

func (l *MemoryLedger) Submit(ctx context.Context, stx *SignedTx) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if stx == nil || stx.Tx == nil {
		return "", fmt.Errorf("ledger: empty transaction")
	}
	tx := stx.Tx
	hash, err := tx.Hash()
	if err != nil {
		return "", err
	}
	bodyHash, err := tx.BodyHash()
	if err != nil {
		return "", err
	}
	signers, err := verifyWitnesses(bodyHash, stx.Witnesses)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.txs[hash]; dup {
		return "", fmt.Errorf("ledger: transaction %s already submitted", hash)
	}
	if owner, ok := l.owners[tx.From]; ok && !containsKey(signers, owner) {
		return "", fmt.Errorf("%w: %s not signed by its owner", ErrBadWitness, tx.From)
	}
	slot := l.slots.Slot(l.now())
	if tx.ValidTo != 0 && slot > tx.ValidTo {
		return "", fmt.Errorf("ledger: transaction expired at slot %d (now %d)", tx.ValidTo, slot)
	}

	switch tx.Kind {
	case KindPayment:
		if l.balances[tx.From] < tx.Amount {
			return "", fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, l.balances[tx.From], tx.Amount)
		}
	case KindMint:
		if err := checkMint(tx, signers); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("ledger: unknown transaction kind %q", tx.Kind)
	}

	rec := &memTx{tx: tx, confirmAt: l.now().Add(l.confirmDelay)}
	if l.reject != nil && l.reject(tx) {
		rec.rejected = true
	} else {
		l.apply(tx)
	}
	l.txs[hash] = rec
	return hash, nil
}

func (l *MemoryLedger) AwaitConfirmation(ctx context.Context, txHash string) error {
	l.mu.Lock()
	rec, ok := l.txs[txHash]
	l.mu.Unlock()
	if !ok {
		return ErrUnknownTx
	}
	if wait := rec.confirmAt.Sub(l.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if rec.rejected {
		return ErrTxRejected
	}
	return nil
}

// apply must be called with l.mu held.
func (l *MemoryLedger) apply(tx *Tx) {
	switch tx.Kind {
	case KindPayment:
		l.balances[tx.From] -= tx.Amount
		l.balances[tx.To] += tx.Amount
	case KindMint:
		held := l.assets[tx.From]
		if held == nil {
			held = make(map[string]int64)
			l.assets[tx.From] = held
		}
		held[tx.Mint.Unit()] += tx.Mint.Quantity
	}
}

func checkMint(tx *Tx, signers [][]byte) error {
	spec := tx.Mint
	if spec == nil {
		return fmt.Errorf("%w: mint body missing", ErrPolicyViolation)
	}
	id, err := spec.Policy.ID()
	if err != nil {
		return err
	}
	if id != spec.PolicyID {
		return fmt.Errorf("%w: policy id %s does not match script %s", ErrPolicyViolation, spec.PolicyID, id)
	}
	if !containsKey(signers, spec.Policy.KeyHash) {
		return fmt.Errorf("%w: policy key did not sign", ErrPolicyViolation)
	}
	if tx.ValidTo == 0 || tx.ValidTo >= spec.Policy.Before {
		return fmt.Errorf("%w: validity %d not before policy lock %d", ErrPolicyViolation, tx.ValidTo, spec.Policy.Before)
	}
	return nil
}

func verifyWitnesses(bodyHash []byte, ws []Witness) ([][]byte, error) {
	if len(ws) == 0 {
		return nil, ErrBadWitness
	}
	signers := make([][]byte, 0, len(ws))
	for _, w := range ws {
		if len(w.VKey) != ed25519.PublicKeySize || !ed25519.Verify(w.VKey, bodyHash, w.Signature) {
			return nil, ErrBadWitness
		}
		signers = append(signers, KeyHash(w.VKey))
	}
	return signers, nil
}

func containsKey(keys [][]byte, want []byte) bool {
	for _, k := range keys {
		if bytes.Equal(k, want) {
			return true
		}
	}
	return false
}
