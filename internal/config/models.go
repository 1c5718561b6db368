package config

import "strings"

// ModelInfo describes token limits and pricing (per 1k tokens) for a chat model.
type ModelInfo struct {
	Name        string
	MaxInput    int
	MaxOutput   int
	InputPrice  float64
	OutputPrice float64
}

// Sampling parameters shared by every completion request.
const (
	Temperature     = 0.1
	PresencePenalty = -0.2
)

var models = map[string]ModelInfo{
	"gpt-4o-mini":   {Name: "gpt-4o-mini", MaxInput: 2048, MaxOutput: 4096},
	"gpt-3.5-turbo": {Name: "gpt-3.5-turbo", MaxInput: 16385, MaxOutput: 4096, InputPrice: 0.0035, OutputPrice: 0.0035},
	"gpt-4o":        {Name: "gpt-4o", MaxInput: 10000, MaxOutput: 16384, InputPrice: 0.0175, OutputPrice: 0.0175},
	"gpt-4.1-nano":  {Name: "gpt-4.1-nano", MaxInput: 1000000, MaxOutput: 32000, InputPrice: 0.0028, OutputPrice: 0.0028},
}

// KnownModel reports whether name is in the model table.
func KnownModel(name string) bool {
	_, ok := models[strings.TrimSpace(name)]
	return ok
}

// LookupModel returns the table entry for name. Unknown models inherit the
// gpt-4o-mini limits under their own name and are priced at zero.
func LookupModel(name string) ModelInfo {
	name = strings.TrimSpace(name)
	if info, ok := models[name]; ok {
		return info
	}
	fallback := models["gpt-4o-mini"]
	fallback.Name = name
	return fallback
}

// Cost returns the estimated spend for one request.
func (m ModelInfo) Cost(promptTokens, completionTokens int) float64 {
	return (m.InputPrice*float64(promptTokens) + m.OutputPrice*float64(completionTokens)) / 1000
}
