package transport

import (
	"strings"

	"github.com/draftwire/llmstream/internal/domain"
)

// Assembler accumulates streamed fragments into the final text artifact.
// One assembler belongs to one call; it is not safe for concurrent use.
type Assembler struct {
	buf   strings.Builder
	usage *domain.Usage
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Accumulate appends one fragment in delivery order.
func (a *Assembler) Accumulate(fragment string) {
	a.buf.WriteString(fragment)
}

// SetUsage records provider-surfaced usage.
func (a *Assembler) SetUsage(u *domain.Usage) {
	a.usage = u
}

// Usage returns the recorded usage, nil when the provider surfaced none.
func (a *Assembler) Usage() *domain.Usage {
	return a.usage
}

// Text returns the locally accumulated text.
func (a *Assembler) Text() string {
	return a.buf.String()
}

// Finalize builds the response artifact. A provider-native final artifact
// is authoritative for the full text when present; otherwise the local
// accumulation stands. Usage is attached only when available.
func (a *Assembler) Finalize(final *domain.ResponseArtifact) *domain.ResponseArtifact {
	if final != nil {
		out := &domain.ResponseArtifact{FullText: final.FullText, Usage: final.Usage}
		if out.Usage == nil {
			out.Usage = a.usage
		}
		return out
	}
	return &domain.ResponseArtifact{FullText: a.buf.String(), Usage: a.usage}
}
