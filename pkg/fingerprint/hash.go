// Package fingerprint turns token streams into k-gram fingerprints.
//
// The pipeline per file is:
//  1. Map every token to an integer value (TokenValue).
//  2. Feed the values through a RollingHash over a window of k tokens.
//  3. Select which k-gram hashes to keep with a Filter: every k-gram
//     (NoFilter) or the winnowed subset (WinnowFilter).
package fingerprint

import (
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// RollingHash computes a polynomial hash over the last k values pushed.
//
//	h(v[0..k-1]) = v[0]*base^(k-1) + v[1]*base^(k-2) + ... + v[k-1]  (mod hashMod)
//
// The oldest value is removed without a separate subtraction by adding
// maxBase*oldest, where maxBase = -base^k mod hashMod.
const (
	// hashMod is the modulus for the hash. All returned hashes are in [0, hashMod).
	hashMod uint64 = 33554393

	// hashBase is the base of the polynomial.
	hashBase uint64 = 4194301
)

// RollingHash is an incremental k-gram hash. The zero value is not usable;
// create one with NewRollingHash.
type RollingHash struct {
	k       int
	maxBase uint64
	memory  []uint64
	cursor  int
	hash    uint64
}

// NewRollingHash creates a rolling hash over windows of k values.
func NewRollingHash(k int) *RollingHash {
	if k < 1 {
		panic("fingerprint: rolling hash window must be positive")
	}
	return &RollingHash{
		k:       k,
		maxBase: (hashMod - powMod(hashBase, uint64(k), hashMod)) % hashMod,
		memory:  make([]uint64, k),
	}
}

// Next pushes one value and returns the hash of the last k values.
// During the first k-1 calls the result covers a partially filled window
// (missing values count as zero).
func (rh *RollingHash) Next(value uint64) uint64 {
	value %= hashMod
	rh.hash = (hashBase*rh.hash + value + rh.maxBase*rh.memory[rh.cursor]) % hashMod
	rh.memory[rh.cursor] = value
	rh.cursor = (rh.cursor + 1) % rh.k
	return rh.hash
}

// Window returns k.
func (rh *RollingHash) Window() int { return rh.k }

// powMod returns base^exp mod m by binary exponentiation.
// All operands are below 2^26 so products fit in 64 bits.
func powMod(base, exp, m uint64) uint64 {
	result := uint64(1) % m
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = (result * base) % m
		}
		base = (base * base) % m
		exp >>= 1
	}
	return result
}

// TokenHash maps a token's text to an integer in [0, hashMod).
func TokenHash(token string) uint64 {
	return xxhash.Sum64String(token) % hashMod
}

// TokenValue returns the rolling-hash input for a token: the code point for
// single-character tokens, TokenHash otherwise.
func TokenValue(token string) uint64 {
	if utf8.RuneCountInString(token) == 1 {
		r, _ := utf8.DecodeRuneInString(token)
		return uint64(r)
	}
	return TokenHash(token)
}
