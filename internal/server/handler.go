package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/draftwire/llmstream/internal/domain"
)

// Completer runs streaming completions. *llmstream.Service satisfies it.
type Completer interface {
	Complete(ctx context.Context, conv []domain.Message, modelName string, sink domain.StreamSink) (*domain.ResponseArtifact, error)
	Refine(ctx context.Context, conv []domain.Message, modelName string, sink domain.StreamSink) (*domain.ResponseArtifact, error)
}

// StreamRequest is the request body for POST /v1/stream.
type StreamRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Refine   bool             `json:"refine,omitempty"`
}

// Handler relays streamed fragments to HTTP clients as server-sent
// events.
type Handler struct {
	completer Completer
}

// NewHandler creates a streaming handler.
func NewHandler(completer Completer) *Handler {
	return &Handler{completer: completer}
}

// HandleStream serves POST /v1/stream. Fragments are relayed as `data:`
// events in arrival order, followed by a final `done` event carrying the
// assembled artifact. Errors before the first fragment map to HTTP status
// codes; errors mid-stream become an `error` event, since fragments
// already sent stand.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "model and messages are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	started := false
	sink := func(fragment string) {
		started = true
		payload := marshalSSE(map[string]string{"text": fragment})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	run := h.completer.Complete
	if req.Refine {
		run = h.completer.Refine
	}

	artifact, err := run(r.Context(), req.Messages, req.Model, sink)
	if err != nil {
		if !started {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		payload := marshalSSE(map[string]string{"message": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
		flusher.Flush()
		return
	}

	payload := marshalSSE(artifact)
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
	flusher.Flush()
}

// marshalSSE encodes v without HTML escaping so fragment text passes
// through SSE payloads byte-for-byte.
func marshalSSE(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func statusForError(err error) int {
	var unknownModel *domain.UnknownModelError
	var malformed *domain.MalformedConversationError
	var transport *domain.ProviderTransportError

	switch {
	case errors.As(err, &unknownModel), errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": message},
	})
}
