package hashing

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Randomizer supplies the bytes salts are drawn from. [*digest.Engine]
// satisfies it.
type Randomizer interface {
	Random(n int) ([]byte, error)
}

type systemRandom struct{}

func (systemRandom) Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func randomizerOrDefault(r Randomizer) Randomizer {
	if r == nil {
		return systemRandom{}
	}
	return r
}

func newSalt(r Randomizer, n int) ([]byte, error) {
	b, err := r.Random(n)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("got %d random bytes, want %d", len(b), n)
	}
	return b, nil
}
