package ai

// ProviderName represents an AI provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameOpenAI   ProviderName = "openai"
	ProviderNameGoogle   ProviderName = "google"
	ProviderNameDeepSeek ProviderName = "deepseek"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameOpenAI, ProviderNameGoogle, ProviderNameDeepSeek:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{
		ProviderNameOpenAI,
		ProviderNameGoogle,
		ProviderNameDeepSeek,
	}
}

// Model name constants
const (
	ModelGPT4o         = "gpt-4o"
	ModelGPT4oMini     = "gpt-4o-mini"
	ModelDeepSeekChat  = "deepseek-chat"
	ModelGemini25Flash = "gemini-2.5-flash"
)

// DefaultModelFor returns the general-purpose model of a provider
func DefaultModelFor(p ProviderName) string {
	switch p {
	case ProviderNameDeepSeek:
		return ModelDeepSeekChat
	case ProviderNameGoogle:
		return ModelGemini25Flash
	default:
		return ModelGPT4oMini
	}
}
