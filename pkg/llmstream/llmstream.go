// Package llmstream is the caller-facing surface of the streaming
// completion adapter: it resolves a model, normalizes the conversation,
// streams fragments to the caller's sink, and returns the assembled
// response artifact.
package llmstream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/draftwire/llmstream/internal/codec"
	"github.com/draftwire/llmstream/internal/debug"
	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/refine"
	"github.com/draftwire/llmstream/internal/registry"
	"github.com/draftwire/llmstream/internal/tokens"
	"github.com/draftwire/llmstream/internal/transport"
)

// Re-exported domain types so callers only import this package.
type (
	Message          = domain.Message
	ResponseArtifact = domain.ResponseArtifact
	StreamSink       = domain.StreamSink
	Usage            = domain.Usage
)

// TransportConfig carries per-call transport wiring.
type TransportConfig struct {
	// BaseURL optionally points at a self-hosted or compatible endpoint.
	BaseURL string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

var defaultCounter = tokens.NewCounter()

// Run performs one streaming completion call: resolve the model, shape the
// conversation for its provider, stream fragments to onFragment in arrival
// order, and return the final artifact. A nil onFragment is allowed.
func Run(ctx context.Context, conv []Message, modelName, apiKey string, cfg TransportConfig, onFragment StreamSink) (*ResponseArtifact, error) {
	desc, err := registry.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	strategy := transport.ForModel(desc, transport.Config{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: cfg.HTTPClient,
		Counter:    defaultCounter,
	})

	if onFragment == nil {
		onFragment = func(string) {}
	}

	return strategy.Stream(ctx, conv, transport.ParamsFor(desc), onFragment)
}

// Credentials configure access to one provider family.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// Service is a wired adapter instance holding provider credentials and
// the optional diagnostics collaborators. One Service serves concurrent
// calls; credentials may be rotated at runtime via UpdateCredentials.
type Service struct {
	mu sync.RWMutex

	// openai serves every OpenAI-compatible model, the Gemini
	// compatibility endpoint included; anthropic serves the
	// Claude-native models.
	openai    Credentials
	anthropic Credentials

	// HTTPClient overrides the default client on both providers.
	HTTPClient *http.Client

	// ImageEncoder overrides data-URL image translation.
	ImageEncoder codec.ImageEncoder

	// Debug receives per-pass artifacts when set.
	Debug *debug.Writer

	// Recorder receives pass transcripts when set.
	Recorder refine.Recorder

	Logger *slog.Logger
}

// NewService creates a service with the given provider credentials.
// Collaborator fields (Debug, Recorder, Logger, HTTPClient, ImageEncoder)
// are set before serving begins.
func NewService(openai, anthropic Credentials) *Service {
	return &Service{openai: openai, anthropic: anthropic}
}

// UpdateCredentials rotates provider credentials. Safe to call while
// calls are in flight; in-flight calls keep the credentials they started
// with.
func (s *Service) UpdateCredentials(openai, anthropic Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openai = openai
	s.anthropic = anthropic
}

func (s *Service) wiring(desc registry.ModelDescriptor) (transport.Strategy, domain.GenerationParams) {
	s.mu.RLock()
	creds := s.openai
	if desc.Provider == registry.ClaudeNative {
		creds = s.anthropic
	}
	s.mu.RUnlock()

	strategy := transport.ForModel(desc, transport.Config{
		APIKey:       creds.APIKey,
		BaseURL:      creds.BaseURL,
		HTTPClient:   s.HTTPClient,
		ImageEncoder: s.ImageEncoder,
		Counter:      defaultCounter,
	})
	return strategy, transport.ParamsFor(desc)
}

// Complete performs a single-pass streaming completion.
func (s *Service) Complete(ctx context.Context, conv []Message, modelName string, sink StreamSink) (*ResponseArtifact, error) {
	desc, err := registry.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	strategy, params := s.wiring(desc)
	if sink == nil {
		sink = func(string) {}
	}
	return strategy.Stream(ctx, conv, params, sink)
}

// Refine performs the two-pass refinement flow and returns the refined
// artifact; the draft is retained only as conversational context.
func (s *Service) Refine(ctx context.Context, conv []Message, modelName string, sink StreamSink) (*ResponseArtifact, error) {
	desc, err := registry.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	strategy, params := s.wiring(desc)
	loop := &refine.Loop{
		Strategy: strategy,
		Params:   params,
		Model:    desc.ID,
		Prime:    true,
		Debug:    s.Debug,
		Recorder: s.Recorder,
		Logger:   s.Logger,
	}
	return loop.Run(ctx, conv, sink)
}
