package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/registry"
	"github.com/draftwire/llmstream/internal/tokens"
)

func sseChunk(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

func newOpenAITestStrategy(t *testing.T, handler http.HandlerFunc, counter *tokens.Counter) *openAIStrategy {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	desc, err := registry.Resolve(registry.GPT4o20241120)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	return newOpenAIStrategy(desc, Config{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
		Counter:    counter,
	})
}

func TestOpenAIStrategy_Stream(t *testing.T) {
	var gotBody map[string]any

	strategy := newOpenAITestStrategy(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, `{"choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"}}]}`)
		sseChunk(w, `{"choices":[{"index":0,"delta":{"content":" world"}}]}`)
		sseChunk(w, `{"choices":[{"index":0,"delta":{}}],"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`)
		sseChunk(w, "[DONE]")
	}, nil)

	conv := []domain.Message{
		{Role: "system", Content: domain.TextContent("sys")},
		{Role: "user", Content: domain.TextContent("hi")},
	}

	var fragments []string
	artifact, err := strategy.Stream(context.Background(), conv, ParamsFor(mustResolve(t, registry.GPT4o20241120)), func(f string) {
		fragments = append(fragments, f)
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	if artifact.FullText != "Hello world" {
		t.Errorf("Expected 'Hello world', got %q", artifact.FullText)
	}
	if strings.Join(fragments, "") != artifact.FullText {
		t.Errorf("Fragment concatenation %q does not equal full text %q",
			strings.Join(fragments, ""), artifact.FullText)
	}
	if len(fragments) != 2 {
		t.Errorf("Expected 2 fragments, got %d", len(fragments))
	}

	if artifact.Usage == nil {
		t.Fatal("Expected usage, got nil")
	}
	if artifact.Usage.InputTokens != 12 || artifact.Usage.OutputTokens != 2 {
		t.Errorf("Unexpected usage: %+v", artifact.Usage)
	}
	if artifact.Usage.Estimated {
		t.Error("Provider-surfaced usage must not be marked estimated")
	}

	// The request must pin temperature to zero and carry the model ceiling.
	if temp, ok := gotBody["temperature"]; !ok || temp.(float64) != 0 {
		t.Errorf("Expected temperature 0 in request, got %v (present=%v)", temp, ok)
	}
	if gotBody["max_tokens"].(float64) != 16384 {
		t.Errorf("Expected max_tokens 16384, got %v", gotBody["max_tokens"])
	}
	if gotBody["stream"] != true {
		t.Error("Expected stream=true in request")
	}
	if gotBody["model"] != registry.GPT4o20241120 {
		t.Errorf("Expected canonical model id, got %v", gotBody["model"])
	}
	if _, ok := gotBody["top_p"]; ok {
		t.Error("Unexpected top_p in request for a non-Gemini model")
	}
}

func TestOpenAIStrategy_UsageEstimatedWhenAbsent(t *testing.T) {
	strategy := newOpenAITestStrategy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, `{"choices":[{"index":0,"delta":{"content":"answer text"}}]}`)
		sseChunk(w, "[DONE]")
	}, tokens.NewCounter())

	conv := []domain.Message{{Role: "user", Content: domain.TextContent("hi")}}

	artifact, err := strategy.Stream(context.Background(), conv, domain.GenerationParams{}, func(string) {})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	if artifact.Usage == nil {
		t.Fatal("Expected estimated usage, got nil")
	}
	if !artifact.Usage.Estimated {
		t.Error("Expected usage marked estimated")
	}
	if artifact.Usage.OutputTokens == 0 {
		t.Error("Expected non-zero estimated output tokens")
	}
}

func TestOpenAIStrategy_DescriptorBaseURL(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, `{"choices":[{"index":0,"delta":{"content":"ok"}}]}`)
		sseChunk(w, "[DONE]")
	}))
	t.Cleanup(ts.Close)

	// Models served from a non-standard base carry it on the descriptor.
	desc := registry.ModelDescriptor{
		ID:       registry.Gemini20FlashExp,
		Provider: registry.OpenAICompatible,
		BaseURL:  ts.URL,
	}
	strategy := newOpenAIStrategy(desc, Config{APIKey: "key", HTTPClient: ts.Client()})

	conv := []domain.Message{{Role: "user", Content: domain.TextContent("hi")}}
	artifact, err := strategy.Stream(context.Background(), conv, domain.GenerationParams{}, func(string) {})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	if hits != 1 {
		t.Errorf("Expected the descriptor base to be called, got %d hits", hits)
	}
	if artifact.FullText != "ok" {
		t.Errorf("Expected 'ok', got %q", artifact.FullText)
	}
}

func TestOpenAIStrategy_ConfigBaseURLWinsOverDescriptor(t *testing.T) {
	wrong := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Descriptor base must not be called when a base is configured")
	}))
	t.Cleanup(wrong.Close)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, "[DONE]")
	}))
	t.Cleanup(ts.Close)

	desc := registry.ModelDescriptor{
		ID:       registry.Gemini20FlashExp,
		Provider: registry.OpenAICompatible,
		BaseURL:  wrong.URL,
	}
	strategy := newOpenAIStrategy(desc, Config{APIKey: "key", BaseURL: ts.URL, HTTPClient: ts.Client()})

	conv := []domain.Message{{Role: "user", Content: domain.TextContent("hi")}}
	if _, err := strategy.Stream(context.Background(), conv, domain.GenerationParams{}, func(string) {}); err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
}

func TestOpenAIStrategy_HTTPError(t *testing.T) {
	strategy := newOpenAITestStrategy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}, nil)

	conv := []domain.Message{{Role: "user", Content: domain.TextContent("hi")}}

	_, err := strategy.Stream(context.Background(), conv, domain.GenerationParams{}, func(string) {})
	var transport *domain.ProviderTransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Expected ProviderTransportError, got %v", err)
	}
	if transport.Provider != string(registry.OpenAICompatible) {
		t.Errorf("Expected provider %q, got %q", registry.OpenAICompatible, transport.Provider)
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Errorf("Expected upstream message preserved, got %q", err.Error())
	}
}

func TestOpenAIStrategy_MalformedChunk(t *testing.T) {
	strategy := newOpenAITestStrategy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, `{"choices":[{"index":0,"delta":{"content":"good"}}]}`)
		sseChunk(w, `{not json`)
	}, nil)

	conv := []domain.Message{{Role: "user", Content: domain.TextContent("hi")}}

	var fragments []string
	_, err := strategy.Stream(context.Background(), conv, domain.GenerationParams{}, func(f string) {
		fragments = append(fragments, f)
	})
	var transport *domain.ProviderTransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Expected ProviderTransportError, got %v", err)
	}
	// Fragments delivered before the failure stand.
	if len(fragments) != 1 || fragments[0] != "good" {
		t.Errorf("Expected delivered fragments to stand, got %v", fragments)
	}
}

func mustResolve(t *testing.T, id string) registry.ModelDescriptor {
	t.Helper()
	desc, err := registry.Resolve(id)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return desc
}
