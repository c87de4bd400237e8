package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrTxRejected is returned by AwaitConfirmation when the ledger refuses a tx.
	ErrTxRejected = errors.New("ledger: transaction rejected")
	// ErrUnknownTx is returned when a tx hash was never submitted.
	ErrUnknownTx = errors.New("ledger: unknown transaction")
)

// encMode produces canonical CBOR so that hashes are stable.
var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// TxKind distinguishes the two transactions a pull produces.
type TxKind string

const (
	KindPayment TxKind = "payment"
	KindMint    TxKind = "mint"
)

// Tx is an unsigned transaction body.
type Tx struct {
	Kind    TxKind    `cbor:"0,keyasint" json:"kind"`
	From    string    `cbor:"1,keyasint" json:"from"`
	To      string    `cbor:"2,keyasint,omitempty" json:"to,omitempty"`
	Amount  Lovelace  `cbor:"3,keyasint,omitempty" json:"amount,omitempty"`
	Mint    *MintSpec `cbor:"4,keyasint,omitempty" json:"mint,omitempty"`
	ValidTo uint64    `cbor:"5,keyasint" json:"valid_to"` // slot
	Nonce   uint64    `cbor:"6,keyasint" json:"nonce"`
}

// MintSpec describes a mint of Quantity units of PolicyID+AssetName.
type MintSpec struct {
	Policy    NativeScript   `cbor:"0,keyasint" json:"policy"`
	PolicyID  string         `cbor:"1,keyasint" json:"policy_id"`
	AssetName string         `cbor:"2,keyasint" json:"asset_name"` // hex
	Quantity  int64          `cbor:"3,keyasint" json:"quantity"`
	Metadata  map[uint64]any `cbor:"4,keyasint,omitempty" json:"metadata,omitempty"`
	ValidTo   uint64         `cbor:"5,keyasint" json:"valid_to"` // slot
}

// Unit is the ledger-wide asset identifier.
func (m MintSpec) Unit() string {
	return m.PolicyID + m.AssetName
}

// Body returns the canonical CBOR encoding of tx.
func (tx *Tx) Body() ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("ledger: nil tx")
	}
	return encMode.Marshal(tx)
}

// BodyHash is the blake2b-256 digest witnesses sign.
func (tx *Tx) BodyHash() ([]byte, error) {
	body, err := tx.Body()
	if err != nil {
		return nil, fmt.Errorf("encode tx body: %w", err)
	}
	sum := blake2b.Sum256(body)
	return sum[:], nil
}

// Hash is the hex transaction id.
func (tx *Tx) Hash() (string, error) {
	h, err := tx.BodyHash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}

// Witness is an ed25519 verification key and its signature over the body hash.
type Witness struct {
	VKey      []byte `json:"vkey"`
	Signature []byte `json:"signature"`
}

// SignedTx is a body plus its witnesses, ready to submit.
type SignedTx struct {
	Tx        *Tx       `json:"tx"`
	Witnesses []Witness `json:"witnesses"`
}

// KeyHash is the blake2b-224 hash identifying a verification key.
func KeyHash(vkey []byte) []byte {
	h, _ := blake2b.New(28, nil)
	h.Write(vkey)
	return h.Sum(nil)
}
