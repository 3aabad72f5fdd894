package oracle

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// SimulatedSource deterministically generates samples around a base
// price, for tests and demos that must not reach the network. Given
// the same seed, the sequence of samples it produces is reproducible.
type SimulatedSource struct {
	id        string
	basePrice float64
	noiseFrac float64
	rng       *rand.Rand
	tick      int
}

// NewSimulatedSource builds a SimulatedSource reporting prices near
// basePrice, jittered by up to noiseFrac (a fraction of basePrice) per
// call, driven by a PRNG seeded deterministically from seed.
func NewSimulatedSource(id string, basePrice, noiseFrac float64, seed int64) *SimulatedSource {
	return &SimulatedSource{
		id:        id,
		basePrice: basePrice,
		noiseFrac: noiseFrac,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedSource) ID() string { return s.id }

// Poll returns the next simulated sample. Safe only for single-goroutine
// polling of a given SimulatedSource instance (the PRNG is unsynchronized).
func (s *SimulatedSource) Poll(_ context.Context, symbol string) (contracts.OracleSample, error) {
	s.tick++
	jitter := (s.rng.Float64()*2 - 1) * s.noiseFrac * s.basePrice
	return contracts.OracleSample{
		SourceID:   s.id,
		Symbol:     symbol,
		Price:      math.Max(0, s.basePrice+jitter),
		Volume:     1000 + s.rng.Float64()*500,
		ReportedAt: time.Now(),
	}, nil
}
