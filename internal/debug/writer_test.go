package debug

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriter_WriteArtifact(t *testing.T) {
	base := t.TempDir()

	w, err := NewWriter(base)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	w.WriteArtifact("pass_1.txt", "draft content")

	data, err := os.ReadFile(filepath.Join(w.Dir(), "pass_1.txt"))
	if err != nil {
		t.Fatalf("Artifact not written: %v", err)
	}
	if string(data) != "draft content" {
		t.Errorf("Expected 'draft content', got %q", data)
	}
}

func TestWriter_RunDirectoriesAreUnique(t *testing.T) {
	base := t.TempDir()

	a, err := NewWriter(base)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	b, err := NewWriter(base)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	if a.Dir() == b.Dir() {
		t.Errorf("Expected distinct run directories, both are %s", a.Dir())
	}
}

func TestWriter_NilIsSafe(t *testing.T) {
	var w *Writer

	// Must not panic and must report an empty directory.
	w.WriteArtifact("pass_1.txt", "ignored")
	if w.Dir() != "" {
		t.Errorf("Expected empty dir for nil writer, got %q", w.Dir())
	}
}
