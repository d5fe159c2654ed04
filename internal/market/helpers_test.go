package market

import "math/rand"

// seqSource replays fixed samples, cycling when exhausted.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
