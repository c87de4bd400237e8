// Package wallet provides signing sessions for connected identities.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xtding233/gacha-mint/internal/ledger"
)

// Session is a connected signing identity.
type Session struct {
	address string
	key     ed25519.PrivateKey
	keyHash []byte
}

// NewSession wraps an existing key for address.
func NewSession(address string, key ed25519.PrivateKey) (*Session, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("wallet: address required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: invalid ed25519 key")
	}
	pub := key.Public().(ed25519.PublicKey)
	return &Session{address: address, key: key, keyHash: ledger.KeyHash(pub)}, nil
}

// Generate creates a session with a fresh key. An empty address is derived
// from the key hash.
func Generate(address string, mainnet bool) (*Session, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	if strings.TrimSpace(address) == "" {
		address = DeriveAddress(ledger.KeyHash(key.Public().(ed25519.PublicKey)), mainnet)
	}
	return NewSession(address, key)
}

// DeriveAddress returns a readable enterprise-style address for a key hash.
// It is not bech32; it only identifies keys inside the in-memory ledger.
func DeriveAddress(keyHash []byte, mainnet bool) string {
	prefix := "addr_test1v"
	if mainnet {
		prefix = "addr1v"
	}
	return prefix + hex.EncodeToString(keyHash)
}

func (s *Session) Address() string {
	if s == nil {
		return ""
	}
	return s.address
}

// PaymentKeyHash is the blake2b-224 hash of the session's verification key.
func (s *Session) PaymentKeyHash() []byte {
	return append([]byte(nil), s.keyHash...)
}

// Sign witnesses tx with the session key.
func (s *Session) Sign(ctx context.Context, tx *ledger.Tx) (*ledger.SignedTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := tx.BodyHash()
	if err != nil {
		return nil, err
	}
	pub := s.key.Public().(ed25519.PublicKey)
	return &ledger.SignedTx{
		Tx: tx,
		Witnesses: []ledger.Witness{{
			VKey:      append([]byte(nil), pub...),
			Signature: ed25519.Sign(s.key, h),
		}},
	}, nil
}

// Short renders an address as addr_tes...12345678 for logs.
func Short(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-8:]
}
