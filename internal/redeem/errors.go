package redeem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xtding233/gacha-mint/internal/ledger"
)

// Kind classifies pull failures.
type Kind string

const (
	KindNoWalletConnected         Kind = "no_wallet_connected"
	KindInsufficientFunds         Kind = "insufficient_funds"
	KindPaymentSubmissionFailed   Kind = "payment_submission_failed"
	KindPaymentConfirmationFailed Kind = "payment_confirmation_failed"
	KindMintSubmissionFailed      Kind = "mint_submission_failed"
	KindMintConfirmationFailed    Kind = "mint_confirmation_failed"
	KindPullAlreadyInProgress     Kind = "pull_already_in_progress"
	KindPullCanceled              Kind = "pull_canceled"
)

var (
	ErrNoWalletConnected         = errors.New("redeem: no wallet connected")
	ErrInsufficientFunds         = errors.New("redeem: insufficient funds")
	ErrPaymentSubmissionFailed   = errors.New("redeem: payment submission failed")
	ErrPaymentConfirmationFailed = errors.New("redeem: payment confirmation failed")
	ErrMintSubmissionFailed      = errors.New("redeem: mint submission failed")
	ErrMintConfirmationFailed    = errors.New("redeem: mint confirmation failed")
	ErrPullAlreadyInProgress     = errors.New("redeem: pull already in progress")
	ErrPullCanceled              = errors.New("redeem: pull canceled")
)

var sentinels = map[Kind]error{
	KindNoWalletConnected:         ErrNoWalletConnected,
	KindInsufficientFunds:         ErrInsufficientFunds,
	KindPaymentSubmissionFailed:   ErrPaymentSubmissionFailed,
	KindPaymentConfirmationFailed: ErrPaymentConfirmationFailed,
	KindMintSubmissionFailed:      ErrMintSubmissionFailed,
	KindMintConfirmationFailed:    ErrMintConfirmationFailed,
	KindPullAlreadyInProgress:     ErrPullAlreadyInProgress,
	KindPullCanceled:              ErrPullCanceled,
}

// Confirmation failure reasons.
const (
	ReasonTimeout  = "timeout"
	ReasonRejected = "rejected"
)

// PullError is the single failure type returned by Pull.
type PullError struct {
	PullID    string
	Kind      Kind
	Stage     State           // state the pull failed in
	Shortfall ledger.Lovelace // InsufficientFunds only
	Reason    string          // confirmation failures: timeout or rejected
	PaymentTx string          // set once the payment was submitted
	Err       error
}

func (e *PullError) Error() string {
	var b strings.Builder
	if s, ok := sentinels[e.Kind]; ok {
		b.WriteString(s.Error())
	} else {
		b.WriteString("redeem: " + string(e.Kind))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if e.Shortfall > 0 {
		fmt.Fprintf(&b, ": short %s", e.Shortfall)
	}
	if e.PaymentTx != "" {
		fmt.Fprintf(&b, " [payment_tx=%s]", e.PaymentTx)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *PullError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Paid reports whether the caller paid and received no reward.
func (e *PullError) Paid() bool {
	return e.PaymentTx != "" && (e.Kind == KindMintSubmissionFailed || e.Kind == KindMintConfirmationFailed)
}

// AsPullError unwraps err into a *PullError.
func AsPullError(err error) (*PullError, bool) {
	var pe *PullError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
