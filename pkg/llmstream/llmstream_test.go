package llmstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/draftwire/llmstream/internal/domain"
)

func newSSEServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func openAIHandler(fragments ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", f)
		}
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func claudeHandler(fragments ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"usage\":{\"input_tokens\":5,\"output_tokens\":1}}}\n\n")
		for _, f := range fragments {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", f)
		}
		fmt.Fprint(w, "event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":2}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}
}

func TestRun_OpenAI(t *testing.T) {
	ts := newSSEServer(t, openAIHandler("Hello", " there"))

	conv := []Message{{Role: "user", Content: domain.TextContent("hi")}}

	var fragments []string
	artifact, err := Run(context.Background(), conv, "gpt-4o-2024-11-20", "key",
		TransportConfig{BaseURL: ts.URL, HTTPClient: ts.Client()},
		func(f string) { fragments = append(fragments, f) })
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if artifact.FullText != "Hello there" {
		t.Errorf("Expected 'Hello there', got %q", artifact.FullText)
	}
	if strings.Join(fragments, "") != artifact.FullText {
		t.Errorf("Fragments %v do not assemble to %q", fragments, artifact.FullText)
	}
	if artifact.Usage == nil || artifact.Usage.InputTokens != 5 {
		t.Errorf("Unexpected usage: %+v", artifact.Usage)
	}
}

func TestRun_ShortNameAlias(t *testing.T) {
	var gotPath string
	ts := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		claudeHandler("ok")(w, r)
	})

	conv := []Message{
		{Role: "system", Content: domain.TextContent("sys")},
		{Role: "user", Content: domain.TextContent("hi")},
	}

	// The legacy alias resolves to the Claude-native protocol.
	artifact, err := Run(context.Background(), conv, "claude_3_sonnet", "key",
		TransportConfig{BaseURL: ts.URL, HTTPClient: ts.Client()}, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if gotPath != "/v1/messages" {
		t.Errorf("Expected the messages endpoint, got %s", gotPath)
	}
	if artifact.FullText != "ok" {
		t.Errorf("Expected 'ok', got %q", artifact.FullText)
	}
}

func TestRun_UnknownModel(t *testing.T) {
	_, err := Run(context.Background(), nil, "no-such-model", "key", TransportConfig{}, nil)

	var unknown *domain.UnknownModelError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownModelError, got %v", err)
	}
}

func TestService_Complete(t *testing.T) {
	ts := newSSEServer(t, openAIHandler("result"))

	svc := NewService(
		Credentials{APIKey: "key", BaseURL: ts.URL},
		Credentials{},
	)
	svc.HTTPClient = ts.Client()

	artifact, err := svc.Complete(context.Background(),
		[]Message{{Role: "user", Content: domain.TextContent("hi")}},
		"gpt-4o-2024-11-20", nil)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if artifact.FullText != "result" {
		t.Errorf("Expected 'result', got %q", artifact.FullText)
	}
}

func TestService_UpdateCredentials(t *testing.T) {
	var gotKeys []string
	ts := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKeys = append(gotKeys, r.Header.Get("Authorization"))
		openAIHandler("x")(w, r)
	})

	svc := NewService(Credentials{APIKey: "old-key", BaseURL: ts.URL}, Credentials{})
	svc.HTTPClient = ts.Client()

	conv := []Message{{Role: "user", Content: domain.TextContent("hi")}}

	if _, err := svc.Complete(context.Background(), conv, "gpt-4o-2024-11-20", nil); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	svc.UpdateCredentials(Credentials{APIKey: "new-key", BaseURL: ts.URL}, Credentials{})

	if _, err := svc.Complete(context.Background(), conv, "gpt-4o-2024-11-20", nil); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if len(gotKeys) != 2 || gotKeys[0] != "Bearer old-key" || gotKeys[1] != "Bearer new-key" {
		t.Errorf("Expected rotated credentials on the wire, got %v", gotKeys)
	}
}

func TestService_Refine(t *testing.T) {
	calls := 0
	ts := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		claudeHandler(fmt.Sprintf("pass %d output", calls))(w, r)
	})

	svc := NewService(Credentials{}, Credentials{APIKey: "key", BaseURL: ts.URL})
	svc.HTTPClient = ts.Client()

	conv := []Message{
		{Role: "system", Content: domain.TextContent("build the page")},
		{Role: "user", Content: domain.TextContent("screenshot attached")},
	}

	artifact, err := svc.Refine(context.Background(), conv, "claude-3-5-sonnet-20241022", nil)
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}

	if calls != 2 {
		t.Errorf("Expected exactly 2 upstream calls, got %d", calls)
	}
	if artifact.FullText != "pass 2 output" {
		t.Errorf("Expected the refined pass to win, got %q", artifact.FullText)
	}
}
