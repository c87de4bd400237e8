package redeem

import "fmt"

// State is a step of the pull pipeline.
type State int

const (
	Idle State = iota
	ValidatingPreconditions
	Paying
	AwaitingPaymentConfirmation
	Drawing
	Minting
	AwaitingMintConfirmation
	Completed
	Errored
)

var stateNames = [...]string{
	Idle:                        "Idle",
	ValidatingPreconditions:     "ValidatingPreconditions",
	Paying:                      "Paying",
	AwaitingPaymentConfirmation: "AwaitingPaymentConfirmation",
	Drawing:                     "Drawing",
	Minting:                     "Minting",
	AwaitingMintConfirmation:    "AwaitingMintConfirmation",
	Completed:                   "Completed",
	Errored:                     "Errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return s == Completed || s == Errored
}

// MarshalText lets states appear by name in JSON error bodies.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
