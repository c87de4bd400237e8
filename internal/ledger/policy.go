package ledger

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Native script tags.
const (
	scriptSig    = 0
	scriptAll    = 1
	scriptBefore = 5
)

// NativeScript is the minting policy all[sig(KeyHash), before(Before)]:
// only the key holder can mint, and only until slot Before.
type NativeScript struct {
	KeyHash []byte `cbor:"0,keyasint" json:"key_hash"`
	Before  uint64 `cbor:"1,keyasint" json:"before"`
}

// NewPolicy builds the script for a 28-byte payment key hash.
func NewPolicy(keyHash []byte, before uint64) (NativeScript, error) {
	if len(keyHash) != 28 {
		return NativeScript{}, fmt.Errorf("ledger: key hash must be 28 bytes, got %d", len(keyHash))
	}
	return NativeScript{KeyHash: append([]byte(nil), keyHash...), Before: before}, nil
}

// CBOR encodes the script the way the chain serialises native scripts.
func (s NativeScript) CBOR() ([]byte, error) {
	return encMode.Marshal([]any{
		uint64(scriptAll),
		[]any{
			[]any{uint64(scriptSig), s.KeyHash},
			[]any{uint64(scriptBefore), s.Before},
		},
	})
}

// ID is the policy id: blake2b-224 of the 0x00 native-script tag and the script CBOR.
func (s NativeScript) ID() (string, error) {
	body, err := s.CBOR()
	if err != nil {
		return "", fmt.Errorf("encode native script: %w", err)
	}
	h, err := blake2b.New(28, nil)
	if err != nil {
		return "", err
	}
	h.Write([]byte{0x00})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
