package market

import (
	"fmt"
	"math"
	"sort"
)

type Status string

const (
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
	StatusTraining Status = "training"
)

// Entry is one competitor on the leaderboard.
type Entry struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Class     string   `json:"class"`
	Rank      int      `json:"rank"`
	Profit    string   `json:"profit"`
	RawProfit float64  `json:"raw_profit"`
	Status    Status   `json:"status"`
	Badges    []string `json:"badges,omitempty"`
	IsUser    bool     `json:"is_user,omitempty"`
}

// FormatProfit renders a raw profit as "+X.Y%" or "-X.Y%". Anything that
// rounds to zero is shown as "+0.0%".
func FormatProfit(raw float64) string {
	v := math.Round(raw*10) / 10
	if v < 0 {
		return fmt.Sprintf("-%.1f%%", math.Abs(v))
	}
	return fmt.Sprintf("+%.1f%%", math.Abs(v))
}

// Rank recomputes raw profit from latest, sorts descending by raw profit and
// assigns dense 1-based ranks. Entries absent from latest keep their previous
// raw profit. Ties keep their previous rank order (unranked last), then fall
// back to id order. The input slice is not modified.
func Rank(entries []Entry, latest Point) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i := range out {
		if v, ok := latest.Values[out[i].Name]; ok {
			out[i].RawProfit = round2(v - BaseValue)
		}
		out[i].Profit = FormatProfit(out[i].RawProfit)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rankedBefore(out[i], out[j])
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func rankedBefore(a, b Entry) bool {
	if a.RawProfit != b.RawProfit {
		return a.RawProfit > b.RawProfit
	}
	pa, pb := priorRank(a.Rank), priorRank(b.Rank)
	if pa != pb {
		return pa < pb
	}
	return a.ID < b.ID
}

func priorRank(r int) int {
	if r <= 0 {
		return math.MaxInt
	}
	return r
}
