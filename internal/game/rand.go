package game

import "math/rand"

// Rand is the random source used by the engines.
// *rand.Rand satisfies it, which lets tests inject a seeded source.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

// DefaultRand returns a Rand backed by the math/rand global source.
func DefaultRand() Rand {
	return globalRand{}
}

// OrDefault returns r, or DefaultRand if r is nil.
func OrDefault(r Rand) Rand {
	if r == nil {
		return DefaultRand()
	}
	return r
}
