package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	openaiapi "github.com/draftwire/llmstream/internal/api/openai"
	"github.com/draftwire/llmstream/internal/codec"
	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/registry"
	"github.com/draftwire/llmstream/internal/tokens"
)

// openAIStrategy streams chat completions from any OpenAI-compatible
// endpoint.
type openAIStrategy struct {
	client  *openaiapi.Client
	model   string
	counter *tokens.Counter
}

func newOpenAIStrategy(desc registry.ModelDescriptor, cfg Config) *openAIStrategy {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = desc.BaseURL
	}

	var clientOpts []openaiapi.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(cfg.HTTPClient))
	}

	return &openAIStrategy{
		client:  openaiapi.NewClient(cfg.APIKey, clientOpts...),
		model:   desc.ID,
		counter: cfg.Counter,
	}
}

func (s *openAIStrategy) Provider() registry.Provider {
	return registry.OpenAICompatible
}

func (s *openAIStrategy) Stream(ctx context.Context, conv []domain.Message, params domain.GenerationParams, sink domain.StreamSink) (*domain.ResponseArtifact, error) {
	ctx, span := otel.Tracer("llmstream/transport").Start(ctx, "openai.stream")
	span.SetAttributes(attribute.String("model", s.model))
	defer span.End()

	temperature := params.Temperature
	req := &openaiapi.ChatCompletionRequest{
		Model:       s.model,
		Messages:    codec.ForOpenAI(conv),
		Temperature: &temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}

	stream, err := s.client.StreamChatCompletion(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.ProviderTransportError{Provider: string(registry.OpenAICompatible), Cause: err}
	}

	asm := NewAssembler()
	for result := range stream {
		if result.Err != nil {
			span.SetStatus(codes.Error, result.Err.Error())
			return nil, &domain.ProviderTransportError{Provider: string(registry.OpenAICompatible), Cause: result.Err}
		}

		chunk := result.Chunk
		if chunk.Usage != nil {
			asm.SetUsage(&domain.Usage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			})
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			fragment := chunk.Choices[0].Delta.Content
			asm.Accumulate(fragment)
			sink(fragment)
		}
	}

	// This protocol has no separate final-object step; the accumulation
	// is authoritative. Estimate usage locally when the stream omitted it.
	if asm.Usage() == nil && s.counter != nil {
		asm.SetUsage(s.counter.EstimateUsage(s.model, conv, asm.Text()))
	}

	return asm.Finalize(nil), nil
}
