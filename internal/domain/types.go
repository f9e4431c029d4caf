// Package domain holds the provider-agnostic conversation model shared by
// every layer of the adapter: messages, content parts, generation
// parameters, and the response artifact returned to callers.
package domain

// Message represents one turn in a canonical conversation.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// Clone returns a deep copy of the message. Provider-specific rewriting
// must never touch the caller's conversation, so every normalizer that
// mutates content works on clones.
func (m Message) Clone() Message {
	return Message{Role: m.Role, Content: m.Content.Clone()}
}

// CloneConversation deep-copies an entire conversation.
func CloneConversation(conv []Message) []Message {
	out := make([]Message, len(conv))
	for i, m := range conv {
		out[i] = m.Clone()
	}
	return out
}

// GenerationParams are the sampling and budget parameters for a single
// streaming call. They are derived once per model and never mutated after
// construction.
type GenerationParams struct {
	// MaxTokens is the output token ceiling. Zero means the provider
	// default is used and the parameter is omitted from the request.
	MaxTokens int

	Temperature float32

	// TopP is sent only when non-nil.
	TopP *float32

	// ExtraHeaders are provider-specific HTTP headers (beta opt-ins and
	// the like) attached verbatim to the upstream request.
	ExtraHeaders map[string]string
}

// StreamSink receives one text fragment per invocation, in strict arrival
// order. The transport does not apply backpressure, so sinks must not
// block.
type StreamSink func(fragment string)

// Usage reports token consumption for a completed call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Estimated is true when the counts were computed locally because the
	// provider did not surface usage for the stream.
	Estimated bool `json:"estimated,omitempty"`
}

// ResponseArtifact is the final result of one transport invocation.
// Ownership transfers to the caller on return.
type ResponseArtifact struct {
	FullText string `json:"full_text"`
	Usage    *Usage `json:"usage,omitempty"`
}
