// Package artifact persists compiled outputs to the output directory.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/executor"
)

// ErrInvalidName is returned for artifact names that would leave the output
// directory.
var ErrInvalidName = errors.New("invalid artifact name")

// Writer writes each Output to <Dir>/<ArtifactName>.
type Writer struct {
	Dir  string
	Perm os.FileMode
}

// NewWriter creates a Writer for dir with 0644 file permissions.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Perm: 0o644}
}

// Write stores one Output atomically: the bytes land in a temp file in the
// same directory which is then renamed over the target. It returns the
// final path.
func (w *Writer) Write(ctx context.Context, out executor.Output) (string, error) {
	name := out.ArtifactName
	if name == "" || filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", w.Dir, err)
	}

	target := filepath.Join(w.Dir, name)
	tmp, err := os.CreateTemp(w.Dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(out.Bytes); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, w.Perm); err != nil {
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}

	ctxlog.FromContext(ctx).Debug("Artifact written.", "path", target, "bytes", len(out.Bytes))
	return target, nil
}

// WriteAll stores every Output and returns the written paths. It keeps going
// after a failure and returns the joined errors.
func (w *Writer) WriteAll(ctx context.Context, outputs []executor.Output) ([]string, error) {
	paths := make([]string, 0, len(outputs))
	var errs []error
	for _, out := range outputs {
		p, err := w.Write(ctx, out)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, p)
	}
	return paths, errors.Join(errs...)
}
