package wizard

import (
	"context"
	"math"
	"time"
)

type BacktestStatus string

const (
	BacktestIdle     BacktestStatus = "idle"
	BacktestRunning  BacktestStatus = "running"
	BacktestFinished BacktestStatus = "finished"
)

const curveDays = 30

type CurvePoint struct {
	Day   int     `json:"day"`
	Value float64 `json:"value"`
}

type Result struct {
	Curve       []CurvePoint `json:"curve"`
	TotalReturn float64      `json:"total_return"`
	MaxDrawdown float64      `json:"max_drawdown"`
	WinRate     float64      `json:"win_rate"`
	Sharpe      float64      `json:"sharpe"`
}

type Backtest struct {
	Status BacktestStatus `json:"status"`
	Logs   []string       `json:"logs,omitempty"`
	Result *Result        `json:"result,omitempty"`
}

func (b Backtest) clone() Backtest {
	out := b
	out.Logs = append([]string(nil), b.Logs...)
	if b.Result != nil {
		r := *b.Result
		r.Curve = append([]CurvePoint(nil), b.Result.Curve...)
		out.Result = &r
	}
	return out
}

var backtestLog = []string{
	"Loading 30 trading days of market data...",
	"Applying persona strategy rules...",
	"Simulating order fills...",
	"Computing risk metrics...",
}

// StartBacktest begins a mock backtest. It is allowed from idle and from
// finished; a run already in flight is cancelled and replaced.
func (w *Wizard) StartBacktest() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.frozenLocked(); err != nil {
		return w.snapshotLocked(), err
	}
	if w.state.Step != StepSimulation {
		return w.snapshotLocked(), ErrWrongStep
	}
	w.stopRunLocked()

	ctx, cancel := context.WithCancel(context.Background())
	w.runSeq++
	w.cancel = cancel
	w.done = make(chan struct{})
	w.state.Backtest = Backtest{Status: BacktestRunning}

	go w.runBacktest(ctx, w.runSeq, w.done)
	return w.snapshotLocked(), nil
}

// WaitBacktest blocks until the current run ends or ctx is done.
func (w *Wizard) WaitBacktest(ctx context.Context) error {
	for {
		w.mu.Lock()
		done := w.done
		running := w.state.Backtest.Status == BacktestRunning
		w.mu.Unlock()
		if done == nil || !running {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Wizard) stopRunLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.runSeq++
}

func (w *Wizard) runBacktest(ctx context.Context, run int, done chan struct{}) {
	defer close(done)
	step := w.duration / time.Duration(len(backtestLog)+1)
	timer := time.NewTimer(step)
	defer timer.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		state, more, ok := w.advanceBacktest(run, i)
		if !ok {
			return
		}
		if w.onChange != nil {
			w.onChange(state)
		}
		if !more {
			return
		}
		timer.Reset(step)
	}
}

// advanceBacktest applies stage i of run. ok is false when the run is stale.
func (w *Wizard) advanceBacktest(run, i int) (state State, more, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if run != w.runSeq || w.state.Backtest.Status != BacktestRunning {
		return State{}, false, false
	}
	if i < len(backtestLog) {
		w.state.Backtest.Logs = append(w.state.Backtest.Logs, backtestLog[i])
		return w.snapshotLocked(), true, true
	}
	result := synthesizeResult(w.src)
	w.state.Backtest.Logs = append(w.state.Backtest.Logs, "Backtest complete.")
	w.state.Backtest.Result = &result
	w.state.Backtest.Status = BacktestFinished
	w.cancel = nil
	return w.snapshotLocked(), false, true
}

func synthesizeResult(src Source) Result {
	curve := make([]CurvePoint, curveDays)
	v, peak, maxDD := 100.0, 100.0, 0.0
	for i := range curve {
		if i > 0 {
			v = round2(v + (src.Float64()-0.45)*3)
		}
		curve[i] = CurvePoint{Day: i + 1, Value: v}
		if v > peak {
			peak = v
		}
		if dd := (peak - v) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return Result{
		Curve:       curve,
		TotalReturn: round2(v - 100),
		MaxDrawdown: round2(maxDD),
		WinRate:     round2(50 + src.Float64()*20),
		Sharpe:      round2(0.8 + src.Float64()*1.6),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
