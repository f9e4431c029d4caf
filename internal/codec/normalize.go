package codec

import (
	"fmt"

	anthropicapi "github.com/draftwire/llmstream/internal/api/anthropic"
	openaiapi "github.com/draftwire/llmstream/internal/api/openai"
	"github.com/draftwire/llmstream/internal/domain"
)

// ForOpenAI shapes a canonical conversation for an OpenAI-compatible
// endpoint. The canonical content encoding already matches the wire shape,
// so this is a plain per-message mapping.
func ForOpenAI(conv []domain.Message) []openaiapi.ChatMessage {
	out := make([]openaiapi.ChatMessage, len(conv))
	for i, m := range conv {
		out[i] = openaiapi.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// ForClaude shapes a canonical conversation for the Anthropic Messages
// API: the leading system turn becomes the separate system field, the
// remainder is deep-copied and every image_url part is rewritten from its
// data-URL form into a base64 source block. The caller's conversation is
// never mutated; callers rely on reusing it for retries.
//
// enc translates data URLs into (media type, payload) pairs; nil selects
// EncodeDataURL.
func ForClaude(conv []domain.Message, enc ImageEncoder) (system string, messages []anthropicapi.Message, err error) {
	if len(conv) == 0 || conv[0].Role != "system" {
		return "", nil, &domain.MalformedConversationError{
			Reason: "first message must have the system role",
		}
	}
	if enc == nil {
		enc = EncodeDataURL
	}

	system = conv[0].Content.String()

	// Deep copy before rewriting; the clone is ours to reshape.
	rest := domain.CloneConversation(conv[1:])

	messages = make([]anthropicapi.Message, len(rest))
	for i, m := range rest {
		block, err := toClaudeContent(m.Content, enc)
		if err != nil {
			// Content that cannot be translated is a shape violation,
			// reported pre-flight like the missing system turn.
			return "", nil, &domain.MalformedConversationError{
				Reason: fmt.Sprintf("message %d: %v", i+1, err),
			}
		}
		messages[i] = anthropicapi.Message{Role: m.Role, Content: block}
	}

	return system, messages, nil
}

func toClaudeContent(content domain.MessageContent, enc ImageEncoder) (anthropicapi.ContentBlock, error) {
	if content.IsSimpleText() {
		return anthropicapi.ContentBlock{{Type: "text", Text: content.Text}}, nil
	}

	block := make(anthropicapi.ContentBlock, 0, len(content.Parts))
	for _, part := range content.Parts {
		switch part.Type {
		case domain.ContentTypeText:
			block = append(block, anthropicapi.ContentPart{Type: "text", Text: part.Text})

		case domain.ContentTypeImageURL:
			if part.ImageURL == nil {
				return nil, fmt.Errorf("image_url part without url")
			}
			mediaType, data, err := enc(part.ImageURL.URL)
			if err != nil {
				return nil, fmt.Errorf("encode image: %w", err)
			}
			block = append(block, anthropicapi.ContentPart{
				Type: "image",
				Source: &anthropicapi.ImageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      data,
				},
			})

		case domain.ContentTypeImage:
			p := anthropicapi.ContentPart{Type: "image"}
			if part.Source != nil {
				p.Source = &anthropicapi.ImageSource{
					Type:      part.Source.Type,
					MediaType: part.Source.MediaType,
					Data:      part.Source.Data,
				}
			}
			block = append(block, p)

		default:
			// Unknown part kinds ride through untouched.
			block = append(block, anthropicapi.ContentPart{Type: string(part.Type), Text: part.Text})
		}
	}
	return block, nil
}
