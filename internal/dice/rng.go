package dice

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math"
)

// stream is the deterministic pseudo-random stream behind a seeded roll.
//
// The construction is fixed forever: the seed string is hashed with 64-bit
// FNV-1a, the digest is finalized through a splitmix64 scramble, and values
// are produced by an xorshift64* generator. The same seed yields the same
// byte-identical sequence on every platform and in every future version,
// which is what lets a third party re-verify a published roll. Do not swap
// in math/rand here: its algorithm is not pinned across releases.
type stream struct {
	state uint64
}

// newStream derives a deterministic stream from a seed string.
func newStream(seed string) *stream {
	h := fnv.New64a()
	h.Write([]byte(seed))
	s := mix64(h.Sum64())
	if s == 0 {
		// xorshift fixpoint; any nonzero constant works.
		s = 0x9E3779B97F4A7C15
	}
	return &stream{state: s}
}

// next advances the xorshift64* generator.
func (r *stream) next() uint64 {
	x := r.state
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.state = x
	return x * 0x2545F4914F6CDD1D
}

// intn returns a uniform value in [0, n) using rejection sampling so every
// face is exactly equally likely.
func (r *stream) intn(n int) int {
	bound := math.MaxUint64 - math.MaxUint64%uint64(n)
	for {
		v := r.next()
		if v < bound {
			return int(v % uint64(n))
		}
	}
}

// die returns a roll in [1, sides].
func (r *stream) die(sides int) int {
	return r.intn(sides) + 1
}

// mix64 is the splitmix64 finalizer, used to spread the FNV digest across
// the full state space.
func mix64(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}

// newSeed generates an unpredictable seed from the system entropy source.
func newSeed() (string, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
