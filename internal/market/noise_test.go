package market

import "testing"

func TestPerturb(t *testing.T) {
	tests := []struct {
		name string
		prev float64
		k    float64
		u    float64
		want float64
	}{
		{"bias point is flat", 100, 2.5, DriftBias, 100},
		{"max draw moves up", 100, 2.5, 1, 101.35},
		{"min draw moves down", 100, 2.5, 0, 98.85},
		{"user volatility", 100, 3.5, 1, 101.89},
		{"no floor", 0.5, 3.5, 0, -1.11},
		{"rounds to cents", 100.004, 1, DriftBias, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Perturb(tt.prev, tt.k, &seqSource{vals: []float64{tt.u}})
			if got != tt.want {
				t.Fatalf("Perturb(%v, %v, u=%v) = %v, want %v", tt.prev, tt.k, tt.u, got, tt.want)
			}
		})
	}
}

func TestPerturbDriftsUpward(t *testing.T) {
	src := newRand(7)
	v := BaseValue
	for i := 0; i < 20000; i++ {
		v = Perturb(v, BotVolatility, src)
	}
	if v <= BaseValue {
		t.Fatalf("expected upward drift after many ticks, got %v", v)
	}
}
