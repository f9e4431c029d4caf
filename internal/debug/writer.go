// Package debug persists per-pass artifacts for offline inspection. It is
// a diagnostics collaborator: a nil writer is valid and silently drops
// everything, and write failures never affect the call that produced the
// artifact.
package debug

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Writer writes labeled artifacts into a per-run directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at baseDir/<run-id>. A writer is only
// constructed when debug mode was enabled at startup; the flag is threaded
// explicitly, never read ambiently by the streaming core.
func NewWriter(baseDir string) (*Writer, error) {
	dir := filepath.Join(baseDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, logger: slog.Default()}, nil
}

// Dir returns the run directory.
func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// WriteArtifact writes one labeled artifact, best effort.
func (w *Writer) WriteArtifact(label, content string) {
	if w == nil {
		return
	}
	path := filepath.Join(w.dir, label)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		w.logger.Error("failed to write debug artifact",
			slog.String("label", label),
			slog.String("error", err.Error()),
		)
		return
	}
	w.logger.Debug("wrote debug artifact", slog.String("path", path))
}
