// Package tokens provides local token accounting for streams whose
// provider does not surface usage.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/draftwire/llmstream/internal/domain"
)

// estimateCharsPerToken is the fallback ratio for models without a known
// tokenizer encoding.
const estimateCharsPerToken = 4.0

// Counter counts tokens with tiktoken where an encoding is known and falls
// back to a character-ratio estimate otherwise. Safe for concurrent use.
type Counter struct {
	mu    sync.RWMutex
	cache map[tokenizer.Encoding]tokenizer.Codec
}

// NewCounter creates a new counter.
func NewCounter() *Counter {
	return &Counter{cache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// EstimateUsage computes usage for a completed call from the input
// conversation and the assembled output. The result is always marked
// estimated; provider-surfaced usage takes precedence over it.
func (c *Counter) EstimateUsage(model string, conv []domain.Message, output string) *domain.Usage {
	input := 0
	for _, m := range conv {
		// Per-message framing overhead, per the chat-format token
		// accounting rules.
		input += 4
		input += c.CountText(model, m.Content.String())
	}

	return &domain.Usage{
		InputTokens:  input,
		OutputTokens: c.CountText(model, output),
		Estimated:    true,
	}
}

// CountText counts tokens in a plain text string. It never fails; unknown
// models use the character-ratio estimate.
func (c *Counter) CountText(model, text string) int {
	codec, err := c.getCodec(model)
	if err != nil {
		return int(float64(len(text)) / estimateCharsPerToken)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return int(float64(len(text)) / estimateCharsPerToken)
	}
	return len(ids)
}

func (c *Counter) getCodec(model string) (tokenizer.Codec, error) {
	encoding := modelToEncoding(model)

	c.mu.RLock()
	if cached, ok := c.cache[encoding]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[encoding] = codec
	c.mu.Unlock()

	return codec, nil
}

// modelToEncoding maps the models this adapter serves to tiktoken
// encodings. gpt-4o and the o-series use o200k_base; older GPT-4 variants
// use cl100k_base. Non-OpenAI models have no tiktoken encoding and fall
// back to estimation, which is good enough for diagnostics.
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.Encoding("")
	}
}
