// Package refine orchestrates the bounded multi-pass self-refinement
// loop: a drafting pass followed by a refining pass against the same
// provider, with the draft fed back as conversational context.
package refine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/draftwire/llmstream/internal/debug"
	"github.com/draftwire/llmstream/internal/domain"
	"github.com/draftwire/llmstream/internal/transport"
)

// passCount is fixed at two: Drafting then Refining. Deliberate design
// constant, not configuration.
const passCount = 2

// PrimingPrefix is the literal opening fragment seeded as a partial
// assistant turn to bias the model toward the required output shape.
const PrimingPrefix = "<thinking>"

// improveInstruction is the fixed user turn appended after the draft.
const improveInstruction = "You've done a good job with a first draft. " +
	"Improve this further based on the original instructions so that the " +
	"result is fully functional and faithful to the original brief."

// Recorder persists per-pass transcripts. Implementations are best
// effort; the loop logs and continues when recording fails.
type Recorder interface {
	RecordPass(ctx context.Context, runID string, pass int, model string, artifact *domain.ResponseArtifact) error
}

// Loop runs the two-pass refinement flow over one streaming strategy.
// The same generation parameters apply to both passes; retry policy
// belongs to the caller, not here.
type Loop struct {
	Strategy transport.Strategy
	Params   domain.GenerationParams

	// Model is the canonical model id, used for transcripts and logs.
	Model string

	// Prime seeds each pass's assistant turn with PrimingPrefix.
	Prime bool

	// Debug receives per-pass artifacts and the raw fragment stream.
	// Nil disables diagnostics without affecting correctness.
	Debug *debug.Writer

	// Recorder receives per-pass transcripts. Nil disables recording.
	Recorder Recorder

	Logger *slog.Logger
}

// Run executes both passes and returns the final pass's artifact. The
// draft is retained only as conversational context. A transport failure
// on any pass aborts immediately; later passes are not attempted.
func (l *Loop) Run(ctx context.Context, conv []domain.Message, sink domain.StreamSink) (*domain.ResponseArtifact, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// The loop extends the conversation between passes; work on a copy so
	// the caller can reuse theirs.
	conv = domain.CloneConversation(conv)

	runID := uuid.New().String()

	var fullStream strings.Builder
	tap := func(fragment string) {
		fullStream.WriteString(fragment)
		if sink != nil {
			sink(fragment)
		}
	}

	var last *domain.ResponseArtifact

	for pass := 1; pass <= passCount; pass++ {
		passCtx, span := otel.Tracer("llmstream/refine").Start(ctx, "refine.pass")
		span.SetAttributes(
			attribute.String("model", l.Model),
			attribute.Int("pass", pass),
		)

		messages := conv
		if l.Prime {
			messages = append(domain.CloneConversation(conv), domain.Message{
				Role:    "assistant",
				Content: domain.TextContent(PrimingPrefix),
			})
		}

		artifact, err := l.Strategy.Stream(passCtx, messages, l.Params, tap)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, err
		}
		span.End()
		if artifact == nil {
			continue
		}
		last = artifact

		l.writePassArtifacts(pass, artifact.FullText)
		l.recordPass(passCtx, logger, runID, pass, artifact)

		if artifact.Usage != nil {
			logger.Info("refinement pass complete",
				slog.String("run_id", runID),
				slog.Int("pass", pass),
				slog.Int("input_tokens", artifact.Usage.InputTokens),
				slog.Int("output_tokens", artifact.Usage.OutputTokens),
			)
		}

		// Feed the pass back as context for the next one.
		prefix := ""
		if l.Prime {
			prefix = PrimingPrefix
		}
		conv = append(conv,
			domain.Message{Role: "assistant", Content: domain.TextContent(prefix + artifact.FullText)},
			domain.Message{Role: "user", Content: domain.TextContent(improveInstruction)},
		)
	}

	l.Debug.WriteArtifact("full_stream.txt", fullStream.String())

	if last == nil {
		return nil, &domain.NoResponseProducedError{}
	}
	return last, nil
}

func (l *Loop) writePassArtifacts(pass int, text string) {
	l.Debug.WriteArtifact(fmt.Sprintf("pass_%d.txt", pass), text)
	if l.Prime {
		thinking, _, _ := strings.Cut(text, "</thinking>")
		l.Debug.WriteArtifact(fmt.Sprintf("thinking_pass_%d.txt", pass), thinking)
	}
}

func (l *Loop) recordPass(ctx context.Context, logger *slog.Logger, runID string, pass int, artifact *domain.ResponseArtifact) {
	if l.Recorder == nil {
		return
	}
	if err := l.Recorder.RecordPass(ctx, runID, pass, l.Model, artifact); err != nil {
		logger.Error("failed to record refinement pass",
			slog.String("run_id", runID),
			slog.Int("pass", pass),
			slog.String("error", err.Error()),
		)
	}
}
