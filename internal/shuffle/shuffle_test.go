package shuffle_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RobotsMakeThings/clawcasino/internal/shuffle"
)

func TestDeckDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0xAA}, shuffle.SeedLen)

	a := shuffle.Deck(seed)
	b := shuffle.Deck(seed)
	require.Equal(t, a, b)
	require.Len(t, a, 52)

	seen := make(map[uint8]bool, 52)
	for _, c := range a {
		require.False(t, seen[uint8(c)], "card %s dealt twice", c)
		seen[uint8(c)] = true
	}

	other := shuffle.Deck(bytes.Repeat([]byte{0xAB}, shuffle.SeedLen))
	require.NotEqual(t, a, other)
}

func TestCommitVerify(t *testing.T) {
	com, err := shuffle.New(bytes.NewReader(bytes.Repeat([]byte{0x42}, 64)))
	require.NoError(t, err)
	require.Len(t, com.Seed, shuffle.SeedLen)
	require.Len(t, com.Hash, 64)

	require.True(t, shuffle.Verify(com.Seed, com.Hash))
	require.False(t, shuffle.Verify(com.Seed, shuffle.Commit([]byte("other")).Hash))

	flipped := append([]byte(nil), com.Seed...)
	flipped[0] ^= 1
	require.False(t, shuffle.Verify(flipped, com.Hash))
}

func TestNewShortEntropy(t *testing.T) {
	_, err := shuffle.New(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

// The coinflip digest must be reproducible from the revealed secret and the
// two wallets alone, so recompute it here without the shuffle package.
func TestCoinflipResultMatchesIndependentDigest(t *testing.T) {
	secret := bytes.Repeat([]byte{0xAA}, shuffle.SeedLen)
	gotHex, creatorWins := shuffle.CoinflipResult(secret, "wallet-creator", "wallet-acceptor")

	var raw []byte
	raw = append(raw, secret...)
	raw = append(raw, []byte("wallet-creator")...)
	raw = append(raw, []byte("wallet-acceptor")...)
	sum := sha256.Sum256(raw)

	require.Equal(t, hex.EncodeToString(sum[:]), gotHex)
	require.Equal(t, sum[0]%2 == 0, creatorWins)
}

func TestCoinflipSensitivity(t *testing.T) {
	secret := bytes.Repeat([]byte{0x01}, shuffle.SeedLen)
	a, _ := shuffle.CoinflipResult(secret, "w1", "w2")
	b, _ := shuffle.CoinflipResult(secret, "w2", "w1")
	require.NotEqual(t, a, b, "wallet order must matter")
}
