package transport

import (
	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/registry"
)

// sonnetLongOutputBeta unlocks the extended output ceiling on the Claude
// 3.5 Sonnet models.
const sonnetLongOutputBeta = "max-tokens-3-5-sonnet-2024-07-15"

// ParamsFor derives the generation parameters for a model. Temperature is
// pinned to zero so output stays reproducible across refinement passes.
// Token ceilings follow the per-model policy: small and legacy vision
// models get a conservative 4096, the newer high-capacity gpt-4o variant
// gets 16384, the Gemini compatibility endpoint gets 8192 with nucleus
// sampling, and everything else relies on the provider default.
func ParamsFor(desc registry.ModelDescriptor) domain.GenerationParams {
	params := domain.GenerationParams{Temperature: 0.0}

	if desc.Provider == registry.ClaudeNative {
		switch desc.ID {
		case registry.Claude35Sonnet0620, registry.Claude35Sonnet1022:
			params.MaxTokens = 8192
			params.ExtraHeaders = map[string]string{"anthropic-beta": sonnetLongOutputBeta}
		default:
			params.MaxTokens = 4096
		}
		return params
	}

	switch desc.ID {
	case registry.GPT4Vision, registry.GPT4Turbo20240409, registry.GPT4o20240513:
		params.MaxTokens = 4096
	case registry.GPT4o20241120:
		params.MaxTokens = 16384
	case registry.Gemini20FlashExp:
		params.MaxTokens = 8192
		topP := float32(0.95)
		params.TopP = &topP
	}

	return params
}
