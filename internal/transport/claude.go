package transport

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	anthropicapi "github.com/draftwire/llmstream/internal/api/anthropic"
	"github.com/draftwire/llmstream/internal/codec"
	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/registry"
)

// defaultClaudeMaxTokens applies when no ceiling was derived; the Messages
// API requires the parameter.
const defaultClaudeMaxTokens = 4096

// claudeStrategy streams messages from the Anthropic Messages API.
type claudeStrategy struct {
	client  *anthropicapi.Client
	model   string
	encoder codec.ImageEncoder
}

func newClaudeStrategy(desc registry.ModelDescriptor, cfg Config) *claudeStrategy {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = desc.BaseURL
	}

	var clientOpts []anthropicapi.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, anthropicapi.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		clientOpts = append(clientOpts, anthropicapi.WithHTTPClient(cfg.HTTPClient))
	}

	return &claudeStrategy{
		client:  anthropicapi.NewClient(cfg.APIKey, clientOpts...),
		model:   desc.ID,
		encoder: cfg.ImageEncoder,
	}
}

func (s *claudeStrategy) Provider() registry.Provider {
	return registry.ClaudeNative
}

func (s *claudeStrategy) Stream(ctx context.Context, conv []domain.Message, params domain.GenerationParams, sink domain.StreamSink) (*domain.ResponseArtifact, error) {
	// Normalization failures are pre-flight and reported before any
	// network call.
	system, messages, err := codec.ForClaude(conv, s.encoder)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("llmstream/transport").Start(ctx, "claude.stream")
	span.SetAttributes(attribute.String("model", s.model))
	defer span.End()

	maxTokens := params.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	temperature := params.Temperature
	req := &anthropicapi.MessagesRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: &temperature,
		TopP:        params.TopP,
	}

	stream, err := s.client.StreamMessage(ctx, req, &anthropicapi.RequestOptions{ExtraHeaders: params.ExtraHeaders})
	if err != nil {
		return nil, s.transportError(span, err)
	}

	// The reader sends on an unbuffered channel; drain on every exit so it
	// can run to completion and close the response body.
	defer func() {
		for range stream {
		}
	}()

	// The assembler tracks the live accumulation for display; the final
	// message is folded separately from the event stream and is the
	// source of truth for text and usage. The two must agree.
	asm := NewAssembler()
	var finalText strings.Builder
	var final *anthropicapi.MessagesResponse

	for result := range stream {
		if result.Err != nil {
			return nil, s.transportError(span, result.Err)
		}

		switch result.EventType {
		case "message_start":
			event, err := result.ParseMessageStart()
			if err != nil {
				return nil, s.transportError(span, fmt.Errorf("parse message_start: %w", err))
			}
			msg := event.Message
			final = &msg

		case "content_block_delta":
			event, err := result.ParseContentBlockDelta()
			if err != nil {
				return nil, s.transportError(span, fmt.Errorf("parse content_block_delta: %w", err))
			}
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				finalText.WriteString(event.Delta.Text)
				asm.Accumulate(event.Delta.Text)
				sink(event.Delta.Text)
			}

		case "message_delta":
			event, err := result.ParseMessageDelta()
			if err != nil {
				return nil, s.transportError(span, fmt.Errorf("parse message_delta: %w", err))
			}
			if final != nil {
				if event.Delta.StopReason != "" {
					final.StopReason = event.Delta.StopReason
				}
				if event.Usage != nil {
					final.Usage.OutputTokens = event.Usage.OutputTokens
				}
			}

		case "ping", "content_block_start", "content_block_stop", "message_stop":
			// Nothing to fold.
		}
	}

	if final == nil {
		return nil, s.transportError(span, fmt.Errorf("stream ended without a message"))
	}

	return asm.Finalize(&domain.ResponseArtifact{
		FullText: finalText.String(),
		Usage: &domain.Usage{
			InputTokens:  final.Usage.InputTokens,
			OutputTokens: final.Usage.OutputTokens,
		},
	}), nil
}

func (s *claudeStrategy) transportError(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	return &domain.ProviderTransportError{Provider: string(registry.ClaudeNative), Cause: err}
}
