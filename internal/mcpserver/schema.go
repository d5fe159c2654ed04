package mcpserver

const (
	defaultHistoryLimit = 60
	maxHistoryLimit     = 60
)

func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
