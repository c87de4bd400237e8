package redeem

import (
	"context"
	"fmt"
	"sync"

	"github.com/xtding233/gacha-mint/internal/ledger"
)

// scriptedLedger is a ledger.Client whose answers are set per test. It
// records every call in order.
type scriptedLedger struct {
	mu    sync.Mutex
	calls []string

	balance      ledger.Lovelace
	balanceFunc  func(ctx context.Context) (ledger.Lovelace, error)
	submitErr    map[ledger.TxKind]error
	submitHook   func(kind ledger.TxKind)
	confirmFunc  map[ledger.TxKind]func(ctx context.Context) error
	kindByHash   map[string]ledger.TxKind
	submitted    []*ledger.SignedTx
	nextHashSeed int
}

func newScripted(balance ledger.Lovelace) *scriptedLedger {
	return &scriptedLedger{
		balance:     balance,
		submitErr:   map[ledger.TxKind]error{},
		confirmFunc: map[ledger.TxKind]func(ctx context.Context) error{},
		kindByHash:  map[string]ledger.TxKind{},
	}
}

func (s *scriptedLedger) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *scriptedLedger) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *scriptedLedger) count(call string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (s *scriptedLedger) SpendableBalance(ctx context.Context, address string) (ledger.Lovelace, error) {
	s.record("balance")
	if s.balanceFunc != nil {
		return s.balanceFunc(ctx)
	}
	return s.balance, nil
}

func (s *scriptedLedger) BuildPayment(ctx context.Context, from, to string, amount ledger.Lovelace) (*ledger.Tx, error) {
	s.record("build:payment")
	return &ledger.Tx{Kind: ledger.KindPayment, From: from, To: to, Amount: amount}, nil
}

func (s *scriptedLedger) BuildMint(ctx context.Context, from string, spec ledger.MintSpec) (*ledger.Tx, error) {
	s.record("build:mint")
	return &ledger.Tx{Kind: ledger.KindMint, From: from, Mint: &spec, ValidTo: spec.ValidTo}, nil
}

func (s *scriptedLedger) Submit(ctx context.Context, tx *ledger.SignedTx) (string, error) {
	kind := tx.Tx.Kind
	s.record("submit:" + string(kind))
	if s.submitHook != nil {
		s.submitHook(kind)
	}
	if err := s.submitErr[kind]; err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHashSeed++
	hash := fmt.Sprintf("%s-%02d", kind, s.nextHashSeed)
	s.kindByHash[hash] = kind
	s.submitted = append(s.submitted, tx)
	return hash, nil
}

func (s *scriptedLedger) AwaitConfirmation(ctx context.Context, txHash string) error {
	s.mu.Lock()
	kind := s.kindByHash[txHash]
	fn := s.confirmFunc[kind]
	s.mu.Unlock()
	s.record("await:" + string(kind))
	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	s.record("confirmed:" + string(kind))
	return nil
}

// blockUntilDone simulates a confirmation that never arrives.
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func rejected(context.Context) error { return ledger.ErrTxRejected }

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}
