package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultHistoryCap  = 60
	DefaultSeedPoints  = 50
	DefaultSeedSpacing = 5 * time.Minute

	timeKey    = "time"
	timeLayout = "15:04"
)

// Point is one sample of the equity chart. Values is keyed by agent display
// name; a missing key means "no data", not zero. Points are treated as
// immutable once they are part of a history.
type Point struct {
	Time   string
	Values map[string]float64
}

func (p Point) Value(name string) (float64, bool) {
	v, ok := p.Values[name]
	return v, ok
}

func (p Point) clone() Point {
	values := make(map[string]float64, len(p.Values)+1)
	for k, v := range p.Values {
		values[k] = v
	}
	return Point{Time: p.Time, Values: values}
}

// MarshalJSON flattens the point into {"time":"09:30","<name>":value,...}
// which is the shape chart consumers read.
func (p Point) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		out[k] = v
	}
	out[timeKey] = p.Time
	return json.Marshal(out)
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ts, ok := raw[timeKey]
	if !ok {
		return errors.New("point: missing time")
	}
	if err := json.Unmarshal(ts, &p.Time); err != nil {
		return fmt.Errorf("point: time: %w", err)
	}
	p.Values = make(map[string]float64, len(raw)-1)
	for k, v := range raw {
		if k == timeKey {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("point: value %q: %w", k, err)
		}
		p.Values[k] = f
	}
	return nil
}

// VolatilityFunc reports the noise magnitude for an agent name.
type VolatilityFunc func(name string) float64

func flatVolatility(k float64) VolatilityFunc {
	return func(string) float64 { return k }
}

// AppendPoint returns a new window holding history plus one point stamped
// with now. Each name is perturbed from its value in the last point, seeding
// from BaseValue when it has none. The oldest points are dropped so the
// result never holds more than limit points. An empty history is returned
// unchanged.
func AppendPoint(history []Point, names []string, now time.Time, limit int, vol VolatilityFunc, src Source) []Point {
	if len(history) == 0 {
		return history
	}
	if vol == nil {
		vol = flatVolatility(BotVolatility)
	}
	last := history[len(history)-1]
	next := Point{Time: now.Format(timeLayout), Values: make(map[string]float64, len(names))}
	for _, name := range names {
		prev, ok := last.Values[name]
		if !ok {
			prev = BaseValue
		}
		next.Values[name] = Perturb(prev, vol(name), src)
	}

	start := 0
	if limit > 0 && len(history)+1 > limit {
		start = len(history) + 1 - limit
	}
	out := make([]Point, 0, len(history)-start+1)
	out = append(out, history[start:]...)
	return append(out, next)
}

// SeedHistory synthesizes count points spaced evenly and ending at end. The
// first point holds BaseValue for every name; each later point perturbs the
// previous one.
func SeedHistory(names []string, end time.Time, count int, spacing time.Duration, vol VolatilityFunc, src Source) []Point {
	if count <= 0 {
		return nil
	}
	if spacing <= 0 {
		spacing = DefaultSeedSpacing
	}
	if vol == nil {
		vol = flatVolatility(BotVolatility)
	}
	start := end.Add(-time.Duration(count-1) * spacing)
	first := Point{Time: start.Format(timeLayout), Values: make(map[string]float64, len(names))}
	for _, name := range names {
		first.Values[name] = BaseValue
	}
	out := make([]Point, 0, count)
	out = append(out, first)
	for i := 1; i < count; i++ {
		out = AppendPoint(out, names, start.Add(time.Duration(i)*spacing), 0, vol, src)
	}
	return out
}

// PruneKey removes name from every point, copying only the points that held it.
func PruneKey(history []Point, name string) []Point {
	out := make([]Point, len(history))
	for i, p := range history {
		if _, ok := p.Values[name]; !ok {
			out[i] = p
			continue
		}
		cp := p.clone()
		delete(cp.Values, name)
		out[i] = cp
	}
	return out
}
