package market

import "math"

const (
	// BaseValue is the index every agent starts from; 100 means 0% return.
	BaseValue = 100.0
	// DriftBias sits a little under 0.5 so curves drift upward over many ticks.
	DriftBias = 0.46

	BotVolatility  = 2.5
	UserVolatility = 3.5
)

// Source yields uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Perturb moves prev by one bounded random step. Values are not clamped.
func Perturb(prev, volatility float64, src Source) float64 {
	return round2(prev + (src.Float64()-DriftBias)*volatility)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
