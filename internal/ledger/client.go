package ledger

import (
	"context"
	"fmt"
)

// Client captures the functionality a pull requires from the ledger.
type Client interface {
	SpendableBalance(ctx context.Context, address string) (Lovelace, error)
	BuildPayment(ctx context.Context, from, to string, amount Lovelace) (*Tx, error)
	BuildMint(ctx context.Context, from string, spec MintSpec) (*Tx, error)
	Submit(ctx context.Context, tx *SignedTx) (string, error)
	// AwaitConfirmation blocks until txHash is final. It returns ErrTxRejected
	// when the ledger refuses the tx and the context error on timeout.
	AwaitConfirmation(ctx context.Context, txHash string) error
}

// FuncClient adapts callback functions to the Client interface.
type FuncClient struct {
	BalanceFunc      func(ctx context.Context, address string) (Lovelace, error)
	BuildPaymentFunc func(ctx context.Context, from, to string, amount Lovelace) (*Tx, error)
	BuildMintFunc    func(ctx context.Context, from string, spec MintSpec) (*Tx, error)
	SubmitFunc       func(ctx context.Context, tx *SignedTx) (string, error)
	ConfirmFunc      func(ctx context.Context, txHash string) error
}

// SpendableBalance delegates to the configured callback.
func (c FuncClient) SpendableBalance(ctx context.Context, address string) (Lovelace, error) {
	if c.BalanceFunc == nil {
		return 0, fmt.Errorf("ledger: balance query not configured")
	}
	return c.BalanceFunc(ctx, address)
}

// BuildPayment delegates to the configured callback, or builds a plain body.
func (c FuncClient) BuildPayment(ctx context.Context, from, to string, amount Lovelace) (*Tx, error) {
	if c.BuildPaymentFunc == nil {
		return &Tx{Kind: KindPayment, From: from, To: to, Amount: amount}, nil
	}
	return c.BuildPaymentFunc(ctx, from, to, amount)
}

// BuildMint delegates to the configured callback, or builds a plain body.
func (c FuncClient) BuildMint(ctx context.Context, from string, spec MintSpec) (*Tx, error) {
	if c.BuildMintFunc == nil {
		return &Tx{Kind: KindMint, From: from, Mint: &spec, ValidTo: spec.ValidTo}, nil
	}
	return c.BuildMintFunc(ctx, from, spec)
}

// Submit delegates to the configured callback.
func (c FuncClient) Submit(ctx context.Context, tx *SignedTx) (string, error) {
	if c.SubmitFunc == nil {
		return "", fmt.Errorf("ledger: submit not configured")
	}
	return c.SubmitFunc(ctx, tx)
}

// AwaitConfirmation delegates to the configured callback.
func (c FuncClient) AwaitConfirmation(ctx context.Context, txHash string) error {
	if c.ConfirmFunc == nil {
		return nil
	}
	return c.ConfirmFunc(ctx, txHash)
}
