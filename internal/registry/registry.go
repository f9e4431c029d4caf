// Package registry enumerates the supported models and resolves external
// short names to canonical model identifiers.
package registry

import "github.com/draftwire/llmstream/internal/domain"

// Provider identifies which streaming strategy serves a model.
type Provider string

const (
	// OpenAICompatible models speak the chat-completions wire protocol,
	// including the Gemini OpenAI-compatible endpoint.
	OpenAICompatible Provider = "openai-compatible"

	// ClaudeNative models speak the Anthropic messages protocol.
	ClaudeNative Provider = "claude-native"
)

// ModelDescriptor describes one supported model. Descriptors are
// constructed once at init and immutable for the process lifetime.
type ModelDescriptor struct {
	// ShortName is the legacy external alias, empty when the model has
	// none.
	ShortName string

	// ID is the canonical identifier passed to the provider and stored in
	// logs.
	ID string

	Provider Provider

	// BaseURL is the default endpoint base for models not served from the
	// provider's standard base, empty otherwise. A caller-configured base
	// still wins over it.
	BaseURL string
}

// geminiOpenAIBase is the Gemini OpenAI-compatibility endpoint.
const geminiOpenAIBase = "https://generativelanguage.googleapis.com/v1beta/openai"

// Canonical model identifiers.
const (
	GPT4Vision          = "gpt-4-vision-preview"
	GPT4Turbo20240409   = "gpt-4-turbo-2024-04-09"
	GPT4o20240513       = "gpt-4o-2024-05-13"
	GPT4o20240806       = "gpt-4o-2024-08-06"
	GPT4o20241120       = "gpt-4o-2024-11-20"
	O120241217          = "o1-2024-12-17"
	Claude3Sonnet       = "claude-3-sonnet-20240229"
	Claude3Opus         = "claude-3-opus-20240229"
	Claude3Haiku        = "claude-3-haiku-20240307"
	Claude35Sonnet0620  = "claude-3-5-sonnet-20240620"
	Claude35Sonnet1022  = "claude-3-5-sonnet-20241022"
	Gemini20FlashExp    = "gemini-2.0-flash-exp"
)

var models = []ModelDescriptor{
	{ShortName: "gpt_4_vision", ID: GPT4Vision, Provider: OpenAICompatible},
	{ID: GPT4Turbo20240409, Provider: OpenAICompatible},
	{ID: GPT4o20240513, Provider: OpenAICompatible},
	{ID: GPT4o20240806, Provider: OpenAICompatible},
	{ID: GPT4o20241120, Provider: OpenAICompatible},
	{ID: O120241217, Provider: OpenAICompatible},
	{ShortName: "claude_3_sonnet", ID: Claude3Sonnet, Provider: ClaudeNative},
	{ID: Claude3Opus, Provider: ClaudeNative},
	{ID: Claude3Haiku, Provider: ClaudeNative},
	{ID: Claude35Sonnet0620, Provider: ClaudeNative},
	{ShortName: "claude_3_5_sonnet", ID: Claude35Sonnet1022, Provider: ClaudeNative},
	{ID: Gemini20FlashExp, Provider: OpenAICompatible, BaseURL: geminiOpenAIBase},
}

// byName indexes descriptors by short name and canonical id. Built once at
// init, read-only afterwards, so Resolve needs no synchronization.
var byName = func() map[string]ModelDescriptor {
	m := make(map[string]ModelDescriptor, 2*len(models))
	for _, d := range models {
		m[d.ID] = d
		if d.ShortName != "" {
			m[d.ShortName] = d
		}
	}
	return m
}()

// Resolve maps an external name to a model descriptor. Legacy short names
// are matched first, then canonical identifiers; anything else fails with
// domain.UnknownModelError.
func Resolve(name string) (ModelDescriptor, error) {
	if d, ok := byName[name]; ok {
		return d, nil
	}
	return ModelDescriptor{}, &domain.UnknownModelError{Name: name}
}

// All returns the full descriptor table, in registration order.
func All() []ModelDescriptor {
	out := make([]ModelDescriptor, len(models))
	copy(out, models)
	return out
}
