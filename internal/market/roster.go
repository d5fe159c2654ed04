package market

// StarterRoster returns a fresh copy of the ten bots every session starts with.
func StarterRoster() []Entry {
	starters := []Entry{
		{ID: "1", Name: "Quantum Sage", Class: "Momentum", Status: StatusOnline, Badges: []string{"veteran"}},
		{ID: "2", Name: "Delta Viper", Class: "Scalper", Status: StatusOnline},
		{ID: "3", Name: "Iron Oracle", Class: "Value", Status: StatusOnline, Badges: []string{"season-1"}},
		{ID: "4", Name: "Neon Drift", Class: "Sentiment", Status: StatusTraining},
		{ID: "5", Name: "Aurum Golem", Class: "Macro", Status: StatusOnline},
		{ID: "6", Name: "Silent Arbiter", Class: "Arbitrage", Status: StatusOffline},
		{ID: "7", Name: "Crimson Ledger", Class: "Mean Reversion", Status: StatusOnline},
		{ID: "8", Name: "Echo Prism", Class: "Sentiment", Status: StatusOnline, Badges: []string{"rookie"}},
		{ID: "9", Name: "Vanta Hedge", Class: "Macro", Status: StatusTraining},
		{ID: "10", Name: "Solar Wyrm", Class: "Momentum", Status: StatusOnline},
	}
	for i := range starters {
		starters[i].Profit = FormatProfit(0)
	}
	return starters
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
