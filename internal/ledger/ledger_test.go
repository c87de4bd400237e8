package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromADA(t *testing.T) {
	v, err := FromADA(5)
	require.NoError(t, err)
	require.Equal(t, Lovelace(5_000_000), v)

	v, err = FromADA(0.1234567)
	require.NoError(t, err)
	require.Equal(t, Lovelace(123457), v)
	require.Equal(t, "0.123457 ADA", v.String())
	require.InDelta(t, 0.123457, v.ADA(), 1e-9)

	_, err = FromADA(-1)
	require.Error(t, err)
}

func TestPolicyID(t *testing.T) {
	keyHash := bytes.Repeat([]byte{0xab}, 28)
	a, err := NewPolicy(keyHash, 1000)
	require.NoError(t, err)
	b, err := NewPolicy(keyHash, 1000)
	require.NoError(t, err)
	c, err := NewPolicy(keyHash, 1001)
	require.NoError(t, err)

	ida, err := a.ID()
	require.NoError(t, err)
	idb, err := b.ID()
	require.NoError(t, err)
	idc, err := c.ID()
	require.NoError(t, err)
	require.Len(t, ida, 56)
	require.Equal(t, ida, idb)
	require.NotEqual(t, ida, idc, "lock slot is part of the policy")

	other, err := NewPolicy(bytes.Repeat([]byte{0xcd}, 28), 1000)
	require.NoError(t, err)
	ido, err := other.ID()
	require.NoError(t, err)
	require.NotEqual(t, ida, ido, "policy is unique per signing key")

	_, err = NewPolicy([]byte{1, 2, 3}, 1)
	require.Error(t, err)
}

func TestNativeScriptCBOR(t *testing.T) {
	s, err := NewPolicy(bytes.Repeat([]byte{0x01}, 28), 10)
	require.NoError(t, err)
	body, err := s.CBOR()
	require.NoError(t, err)
	// [1, [[0, h'01..'], [5, 10]]]
	require.Equal(t, []byte{0x82, 0x01, 0x82, 0x82, 0x00, 0x58, 0x1c}, body[:7])
	require.Equal(t, []byte{0x82, 0x05, 0x0a}, body[len(body)-3:])
}

func TestTxHashStable(t *testing.T) {
	tx := &Tx{Kind: KindPayment, From: "a", To: "b", Amount: 1, ValidTo: 9, Nonce: 1}
	h1, err := tx.Hash()
	require.NoError(t, err)
	h2, err := tx.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	tx.Nonce = 2
	h3, err := tx.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestSlots(t *testing.T) {
	preprod, err := Network("preprod")
	require.NoError(t, err)
	at := time.UnixMilli(preprod.ZeroTime + 5000)
	require.Equal(t, preprod.ZeroSlot+5, preprod.Slot(at))
	require.Equal(t, at, preprod.Time(preprod.ZeroSlot+5))

	_, err = Network("devnet")
	require.Error(t, err)
}

func TestFuncClientDefaults(t *testing.T) {
	ctx := context.Background()
	c := FuncClient{}
	_, err := c.SpendableBalance(ctx, "a")
	require.Error(t, err)
	tx, err := c.BuildPayment(ctx, "a", "b", 3)
	require.NoError(t, err)
	require.Equal(t, KindPayment, tx.Kind)
	_, err = c.Submit(ctx, &SignedTx{Tx: tx})
	require.Error(t, err)
	require.NoError(t, c.AwaitConfirmation(ctx, "x"))
}
