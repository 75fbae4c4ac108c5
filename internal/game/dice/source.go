// Package dice provides the randomness abstraction shared by the combat core,
// the battle engine and the scripting layer.
package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source is the randomness provider for every roll in the game.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a uniformly distributed value in [0, 1).
	Float64() float64
}

// float64Span is 2^53, the number of distinct float64 values in [0, 1) at unit spacing.
const float64Span = 1 << 53

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n); every Float64 is in [0, 1).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a cryptographically secure value in [0, 1) with 53 bits of precision.
func (c *cryptoSource) Float64() float64 {
	return float64(c.Intn(float64Span)) / float64Span
}

// seededSource is a deterministic PCG stream guarded by a mutex.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source. Two sources built from the
// same seed yield identical sequences.
//
// Postcondition: Returns a non-nil Source safe for concurrent use.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Float64 returns a pseudo-random value in [0, 1).
func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewSource returns a seeded source when seed is non-zero and a crypto source otherwise.
func NewSource(seed uint64) Source {
	if seed == 0 {
		return NewCryptoSource()
	}
	return NewSeededSource(seed)
}

// ScriptedSource replays fixed values, for deterministic tests and replays.
// Float64 values are consumed in order; once exhausted it returns Fallback.
// Intn is derived from the same queue as int(v*n).
type ScriptedSource struct {
	mu       sync.Mutex
	values   []float64
	next     int
	Fallback float64
}

// NewScriptedSource returns a ScriptedSource that replays values and then 0.99.
//
// Precondition: every value is in [0, 1).
func NewScriptedSource(values ...float64) *ScriptedSource {
	for _, v := range values {
		if v < 0 || v >= 1 {
			panic("dice: NewScriptedSource precondition violated: values must be in [0, 1)")
		}
	}
	return &ScriptedSource{values: append([]float64(nil), values...), Fallback: 0.99}
}

// Float64 returns the next scripted value.
func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.values) {
		return s.Fallback
	}
	v := s.values[s.next]
	s.next++
	return v
}

// Intn maps the next scripted value onto [0, n).
//
// Precondition: n > 0.
func (s *ScriptedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return int(s.Float64() * float64(n))
}

// Remaining reports how many scripted values have not been consumed.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.next
}
