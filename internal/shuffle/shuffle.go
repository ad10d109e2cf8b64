// Package shuffle implements the committed deterministic shuffler. The
// server draws a secret seed, publishes its SHA-256 before any card is
// dealt, drives a Fisher-Yates shuffle from a seed-derived hash stream,
// and reveals the seed once the hand settles so anyone can replay the
// exact deck order.
package shuffle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/RobotsMakeThings/clawcasino/internal/cards"
)

// SeedLen is the secret seed length in bytes.
const SeedLen = 32

// Commitment pairs a secret seed with the hash published in its place.
type Commitment struct {
	Seed []byte
	Hash string
}

// New draws a fresh seed from r (crypto/rand in production, a fixed
// reader in tests) and commits to it.
func New(r io.Reader) (Commitment, error) {
	seed := make([]byte, SeedLen)
	if _, err := io.ReadFull(r, seed); err != nil {
		return Commitment{}, fmt.Errorf("shuffle: draw seed: %w", err)
	}
	return Commit(seed), nil
}

// Commit hashes an existing seed.
func Commit(seed []byte) Commitment {
	sum := sha256.Sum256(seed)
	return Commitment{Seed: seed, Hash: hex.EncodeToString(sum[:])}
}

// Verify reports whether seed matches a published commitment hash.
func Verify(seed []byte, hash string) bool {
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:]) == hash
}

// Deck returns the 52-card deck shuffled by a SHA-256 stream derived from
// the seed. For each Fisher-Yates position i (51 down to 1) the swap index
// is the little-endian low eight bytes of SHA-256(seed || counter-LE)
// reduced mod i+1, with the counter advancing once per position.
func Deck(seed []byte) []cards.Card {
	deck := cards.NewDeck()
	var counter uint64
	for i := len(deck) - 1; i > 0; i-- {
		buf := make([]byte, len(seed)+8)
		copy(buf, seed)
		binary.LittleEndian.PutUint64(buf[len(seed):], counter)
		h := sha256.Sum256(buf)
		counter++
		j := int(binary.LittleEndian.Uint64(h[:8]) % uint64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// CoinflipResult resolves a committed coinflip. The result digest is
// SHA-256(secret || creator wallet || acceptor wallet); the creator wins
// when its first byte is even.
func CoinflipResult(secret []byte, creatorWallet, acceptorWallet string) (string, bool) {
	h := sha256.New()
	h.Write(secret)
	h.Write([]byte(creatorWallet))
	h.Write([]byte(acceptorWallet))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum), sum[0]%2 == 0
}
