package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/draftwire/llmstream/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})
	return store
}

func TestStore_RecordAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	draft := &domain.ResponseArtifact{
		FullText: "draft html",
		Usage:    &domain.Usage{InputTokens: 100, OutputTokens: 50},
	}
	refined := &domain.ResponseArtifact{FullText: "refined html"}

	if err := store.RecordPass(ctx, "run-1", 1, "claude-3-5-sonnet-20241022", draft); err != nil {
		t.Fatalf("RecordPass returned error: %v", err)
	}
	if err := store.RecordPass(ctx, "run-1", 2, "claude-3-5-sonnet-20241022", refined); err != nil {
		t.Fatalf("RecordPass returned error: %v", err)
	}

	passes, err := store.Passes(ctx, "run-1")
	if err != nil {
		t.Fatalf("Passes returned error: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("Expected 2 passes, got %d", len(passes))
	}

	if passes[0].Pass != 1 || passes[0].Content != "draft html" {
		t.Errorf("Unexpected first pass: %+v", passes[0])
	}
	if passes[0].InputTokens != 100 || passes[0].OutputTokens != 50 {
		t.Errorf("Expected usage persisted, got %+v", passes[0])
	}
	if passes[1].Pass != 2 || passes[1].InputTokens != 0 {
		t.Errorf("Unexpected second pass: %+v", passes[1])
	}
	if passes[0].Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Expected model persisted, got %q", passes[0].Model)
	}
}

func TestStore_RecordPassReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordPass(ctx, "run-1", 1, "m", &domain.ResponseArtifact{FullText: "first"}); err != nil {
		t.Fatalf("RecordPass returned error: %v", err)
	}
	if err := store.RecordPass(ctx, "run-1", 1, "m", &domain.ResponseArtifact{FullText: "second"}); err != nil {
		t.Fatalf("RecordPass returned error: %v", err)
	}

	passes, err := store.Passes(ctx, "run-1")
	if err != nil {
		t.Fatalf("Passes returned error: %v", err)
	}
	if len(passes) != 1 {
		t.Fatalf("Expected 1 pass after replacement, got %d", len(passes))
	}
	if passes[0].Content != "second" {
		t.Errorf("Expected replacement content, got %q", passes[0].Content)
	}
}

func TestStore_PassesIsolatedByRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.RecordPass(ctx, "run-a", 1, "m", &domain.ResponseArtifact{FullText: "a"})
	store.RecordPass(ctx, "run-b", 1, "m", &domain.ResponseArtifact{FullText: "b"})

	passes, err := store.Passes(ctx, "run-a")
	if err != nil {
		t.Fatalf("Passes returned error: %v", err)
	}
	if len(passes) != 1 || passes[0].Content != "a" {
		t.Errorf("Expected only run-a passes, got %+v", passes)
	}
}

func TestStore_PassesEmptyRun(t *testing.T) {
	store := openTestStore(t)

	passes, err := store.Passes(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Passes returned error: %v", err)
	}
	if len(passes) != 0 {
		t.Errorf("Expected no passes, got %d", len(passes))
	}
}
