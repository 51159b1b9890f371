package signer

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x5FC8d32690cc91D4c39d9d3abcBD16989F875707"

func newTestSigner(t *testing.T, chainID int64) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := New(key, chainID, testContract)
	require.NoError(t, err)
	return s
}

func TestSignClaim_RoundTrip(t *testing.T) {
	s := newTestSigner(t, 84532)

	for i := 0; i < 20; i++ {
		nonce, err := NewNonce()
		require.NoError(t, err)
		key, err := crypto.GenerateKey()
		require.NoError(t, err)

		msg := ClaimMessage{
			PacketID:      uint64(i * 1_000_003),
			Claimer:       crypto.PubkeyToAddress(key.PublicKey).Hex(),
			TwitterUserID: fmt.Sprintf("1%018d", i),
			Nonce:         nonce,
		}
		sig, err := s.SignClaim(msg)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		assert.Contains(t, []byte{27, 28}, sig[64])

		got, err := s.Recover(msg, sig)
		require.NoError(t, err)
		assert.Equal(t, s.Address(), got)
	}
}

func TestSignClaim_BindsEveryField(t *testing.T) {
	s := newTestSigner(t, 8453)
	base := ClaimMessage{
		PacketID:      7,
		Claimer:       "0x1111111111111111111111111111111111111111",
		TwitterUserID: "12345",
		Nonce:         big.NewInt(99),
	}
	sig, err := s.SignClaim(base)
	require.NoError(t, err)

	mutations := map[string]ClaimMessage{
		"packet":  {PacketID: 8, Claimer: base.Claimer, TwitterUserID: base.TwitterUserID, Nonce: base.Nonce},
		"claimer": {PacketID: 7, Claimer: "0x2222222222222222222222222222222222222222", TwitterUserID: base.TwitterUserID, Nonce: base.Nonce},
		"twitter": {PacketID: 7, Claimer: base.Claimer, TwitterUserID: "54321", Nonce: base.Nonce},
		"nonce":   {PacketID: 7, Claimer: base.Claimer, TwitterUserID: base.TwitterUserID, Nonce: big.NewInt(100)},
	}
	for name, msg := range mutations {
		t.Run(name, func(t *testing.T) {
			got, err := s.Recover(msg, sig)
			if err == nil {
				assert.NotEqual(t, s.Address(), got)
			}
		})
	}
}

func TestHash_DomainSeparated(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	msg := ClaimMessage{PacketID: 1, Claimer: "0x1111111111111111111111111111111111111111", TwitterUserID: "1", Nonce: big.NewInt(1)}

	mainnet, err := New(key, 8453, testContract)
	require.NoError(t, err)
	testnet, err := New(key, 84532, testContract)
	require.NoError(t, err)
	otherContract, err := New(key, 8453, "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)

	h1, err := mainnet.Hash(msg)
	require.NoError(t, err)
	h2, err := testnet.Hash(msg)
	require.NoError(t, err)
	h3, err := otherContract.Hash(msg)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestHash_RejectsBadInput(t *testing.T) {
	s := newTestSigner(t, 1)
	_, err := s.Hash(ClaimMessage{Claimer: "0x1111111111111111111111111111111111111111"})
	assert.Error(t, err)
	_, err = s.Hash(ClaimMessage{Claimer: "not-an-address", Nonce: big.NewInt(1)})
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	// hardhat 默认账户 #0
	const pk = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	const addr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	key, err := LoadKey(KeySource{PrivateKey: "0x" + pk})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addr), crypto.PubkeyToAddress(key.PublicKey))

	key, err = LoadKey(KeySource{Mnemonic: "test test test test test test test test test test test junk"})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addr), crypto.PubkeyToAddress(key.PublicKey))

	_, err = LoadKey(KeySource{})
	assert.Error(t, err)
}

func TestNewNonce_Unique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		n, err := NewNonce()
		require.NoError(t, err)
		assert.LessOrEqual(t, n.BitLen(), 256)
		_, dup := seen[n.String()]
		assert.False(t, dup)
		seen[n.String()] = struct{}{}
	}
}
