package llm

// ModelInfo describes a model known to the client.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	MaxOutput     *int     `json:"max_output,omitempty"`
	// Reasoning marks models that reject system prompts and sampling
	// parameters and meter output as completion tokens.
	Reasoning bool     `json:"reasoning,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
}

func intPtr(i int) *int { return &i }

// Models is the built-in catalog of supported model identifiers.
var Models = []ModelInfo{
	{
		ID:            "mistral-nemo",
		Provider:      "ollama",
		DisplayName:   "Mistral NeMo",
		ContextWindow: 128000,
	},
	{
		ID:            "gpt-4o",
		Provider:      "openai",
		DisplayName:   "GPT-4o",
		ContextWindow: 128000,
		MaxOutput:     intPtr(16384),
		Aliases:       []string{"4o"},
	},
	{
		ID:            "gpt-4o-mini",
		Provider:      "openai",
		DisplayName:   "GPT-4o mini",
		ContextWindow: 128000,
		MaxOutput:     intPtr(16384),
		Aliases:       []string{"4o-mini"},
	},
	{
		ID:            "o1-preview",
		Provider:      "openai",
		DisplayName:   "o1 Preview",
		ContextWindow: 128000,
		MaxOutput:     intPtr(16384),
		Reasoning:     true,
	},
	{
		ID:            "o1-mini",
		Provider:      "openai",
		DisplayName:   "o1 Mini",
		ContextWindow: 128000,
		MaxOutput:     intPtr(16384),
		Reasoning:     true,
	},
	{
		ID:            "claude-3-5-sonnet-20241022",
		Provider:      "claude",
		DisplayName:   "Claude 3.5 Sonnet",
		ContextWindow: 200000,
		MaxOutput:     intPtr(8192),
		Aliases:       []string{"claude-3-5-sonnet"},
	},
	{
		ID:            "claude-3-5-haiku-20241022",
		Provider:      "claude",
		DisplayName:   "Claude 3.5 Haiku",
		ContextWindow: 200000,
		MaxOutput:     intPtr(8192),
		Aliases:       []string{"claude-3-5-haiku"},
	},
}

// GetModelInfo looks up a model by ID or alias. Returns nil when the
// model is not in the catalog.
func GetModelInfo(idOrAlias string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == idOrAlias {
			return &Models[i]
		}
	}
	for i := range Models {
		for _, alias := range Models[i].Aliases {
			if alias == idOrAlias {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns catalog entries for a provider, or all entries when
// provider is empty.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		out := make([]ModelInfo, len(Models))
		copy(out, Models)
		return out
	}
	var out []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	return out
}

// DefaultModel returns the model a provider falls back to when the
// requested model does not belong to it.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "claude":
		return "claude-3-5-sonnet-20241022"
	default:
		return "mistral-nemo"
	}
}

// ResolveModel maps a requested model onto one the provider serves.
// Models outside the catalog are passed through for the ollama provider,
// which serves arbitrary local models.
func ResolveModel(provider, model string) string {
	if model == "" {
		return DefaultModel(provider)
	}
	info := GetModelInfo(model)
	if info == nil {
		if provider == "ollama" {
			return model
		}
		return DefaultModel(provider)
	}
	if info.Provider != provider {
		return DefaultModel(provider)
	}
	return info.ID
}

// ContextWindowFor returns the context window for a model, falling back
// to the provider default when the model is unknown.
func ContextWindowFor(provider, model string) int {
	if info := GetModelInfo(model); info != nil {
		return info.ContextWindow
	}
	if info := GetModelInfo(DefaultModel(provider)); info != nil {
		return info.ContextWindow
	}
	return 128000
}

// MaxOutputFor returns the output token cap for a model, or 0 when the
// model has no fixed cap.
func MaxOutputFor(provider, model string) int {
	if info := GetModelInfo(model); info != nil && info.MaxOutput != nil {
		return *info.MaxOutput
	}
	if info := GetModelInfo(DefaultModel(provider)); info != nil && info.MaxOutput != nil {
		return *info.MaxOutput
	}
	return 0
}

// IsReasoningModel reports whether the model is a reasoning model that
// rejects system prompts and sampling parameters.
func IsReasoningModel(model string) bool {
	if info := GetModelInfo(model); info != nil {
		return info.Reasoning
	}
	return false
}
