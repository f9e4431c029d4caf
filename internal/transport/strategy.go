// Package transport drives a normalized conversation through a provider's
// streaming protocol, forwarding fragments to a caller-supplied sink and
// assembling the final response artifact.
package transport

import (
	"context"
	"net/http"

	"github.com/draftwire/llmstream/internal/codec"
	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/registry"
	"github.com/draftwire/llmstream/internal/tokens"
)

// Strategy streams one generation call against a provider. Implementations
// deliver fragments to the sink in strict arrival order and release the
// underlying connection on every exit path.
type Strategy interface {
	// Provider reports which protocol this strategy speaks.
	Provider() registry.Provider

	// Stream opens the provider connection, pushes the conversation and
	// parameters, and forwards each text fragment to sink as it arrives.
	// A transport failure aborts with domain.ProviderTransportError;
	// fragments already delivered stand.
	Stream(ctx context.Context, conv []domain.Message, params domain.GenerationParams, sink domain.StreamSink) (*domain.ResponseArtifact, error)
}

// Config carries per-call wiring for a strategy.
type Config struct {
	APIKey string

	// BaseURL overrides the provider endpoint for self-hosted or
	// compatible bases. Empty selects the provider default.
	BaseURL string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// ImageEncoder overrides the data-URL image translation collaborator.
	ImageEncoder codec.ImageEncoder

	// Counter supplies local usage estimation for streams whose provider
	// does not surface usage. Nil disables estimation.
	Counter *tokens.Counter
}

// ForModel selects the streaming strategy for a resolved model.
func ForModel(desc registry.ModelDescriptor, cfg Config) Strategy {
	switch desc.Provider {
	case registry.ClaudeNative:
		return newClaudeStrategy(desc, cfg)
	default:
		return newOpenAIStrategy(desc, cfg)
	}
}
