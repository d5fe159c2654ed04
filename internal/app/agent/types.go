package agent

import "analyst-alchemist/internal/profile"

// ReconfigureInput carries the editable fields; nil or empty fields keep
// their current value.
type ReconfigureInput struct {
	Name    string         `json:"name"`
	Class   string         `json:"class"`
	Stats   *profile.Stats `json:"stats"`
	Modules []string       `json:"modules"`
}

type PromptInput struct {
	Capability string
	Prompt     string
}
