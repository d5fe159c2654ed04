package wizard

import "analyst-alchemist/internal/profile"

type Persona struct {
	ID      string                        `json:"id"`
	Name    string                        `json:"name"`
	Class   string                        `json:"class"`
	Stats   profile.Stats                 `json:"stats"`
	Modules []string                      `json:"modules"`
	Prompts map[profile.Capability]string `json:"prompts"`
}

type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Personas    []Persona `json:"personas"`
}

func (w Workflow) Persona(id string) (Persona, bool) {
	for _, p := range w.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

var catalog = []Workflow{
	{
		ID:          "momentum",
		Name:        "Momentum",
		Description: "Rides strong trends and cuts laggards early.",
		Personas: []Persona{
			{
				ID: "breakout", Name: "Breakout Hunter", Class: "Momentum Hunter",
				Stats:   profile.Stats{Intelligence: 70, Speed: 90, Risk: 75},
				Modules: []string{string(profile.CapMarketScan), string(profile.CapSignal)},
				Prompts: map[profile.Capability]string{
					profile.CapMarketScan: "Scan for names breaking 20-day highs on rising volume.",
					profile.CapSignal:     "Enter on the first pullback that holds the breakout level.",
				},
			},
			{
				ID: "trend_rider", Name: "Trend Rider", Class: "Trend Follower",
				Stats:   profile.Stats{Intelligence: 65, Speed: 70, Risk: 55},
				Modules: []string{string(profile.CapSignal), string(profile.CapRiskGuard)},
				Prompts: map[profile.Capability]string{
					profile.CapSignal:    "Follow the 50-day trend and add on higher lows.",
					profile.CapRiskGuard: "Exit when price closes below the 50-day average.",
				},
			},
		},
	},
	{
		ID:          "value",
		Name:        "Value",
		Description: "Buys quality at a discount and waits.",
		Personas: []Persona{
			{
				ID: "deep_value", Name: "Deep Value Monk", Class: "Value Investor",
				Stats:   profile.Stats{Intelligence: 90, Speed: 30, Risk: 35},
				Modules: []string{string(profile.CapMarketScan), string(profile.CapReport)},
				Prompts: map[profile.Capability]string{
					profile.CapMarketScan: "Screen for low price-to-book with positive free cash flow.",
					profile.CapReport:     "Summarize the margin of safety for each holding.",
				},
			},
			{
				ID: "dividend", Name: "Dividend Keeper", Class: "Income Guardian",
				Stats:   profile.Stats{Intelligence: 75, Speed: 25, Risk: 20},
				Modules: []string{string(profile.CapRiskGuard), string(profile.CapReport)},
				Prompts: map[profile.Capability]string{
					profile.CapRiskGuard: "Avoid payout ratios above 80%.",
					profile.CapReport:    "Report yield on cost every week.",
				},
			},
		},
	},
	{
		ID:          "sentiment",
		Name:        "Sentiment",
		Description: "Trades the crowd's mood from news and social feeds.",
		Personas: []Persona{
			{
				ID: "news_hawk", Name: "News Hawk", Class: "Sentiment Reader",
				Stats:   profile.Stats{Intelligence: 80, Speed: 85, Risk: 60},
				Modules: []string{string(profile.CapMarketScan), string(profile.CapSignal), string(profile.CapReport)},
				Prompts: map[profile.Capability]string{
					profile.CapMarketScan: "Track headlines with unusual mention spikes.",
					profile.CapSignal:     "Fade extreme euphoria, follow fresh upgrades.",
					profile.CapReport:     "List the three strongest sentiment shifts today.",
				},
			},
		},
	},
	{
		ID:          "arbitrage",
		Name:        "Arbitrage",
		Description: "Hunts small, repeatable mispricings.",
		Personas: []Persona{
			{
				ID: "pair_trader", Name: "Pair Trader", Class: "Arbitrageur",
				Stats:   profile.Stats{Intelligence: 85, Speed: 80, Risk: 30},
				Modules: []string{string(profile.CapSignal), string(profile.CapRiskGuard)},
				Prompts: map[profile.Capability]string{
					profile.CapSignal:    "Open pairs when the spread z-score passes 2.",
					profile.CapRiskGuard: "Close both legs when the spread z-score crosses 0.",
				},
			},
		},
	},
}

// Workflows returns the selectable workflows with their personas.
func Workflows() []Workflow {
	out := make([]Workflow, len(catalog))
	copy(out, catalog)
	return out
}

func FindWorkflow(id string) (Workflow, bool) {
	for _, w := range catalog {
		if w.ID == id {
			return w, true
		}
	}
	return Workflow{}, false
}
