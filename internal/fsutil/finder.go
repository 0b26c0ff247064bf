// Package fsutil reads the shared source tree. It is the only part of a
// build that touches the filesystem before the compiler runs.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// ErrRootMissing is wrapped by FilesystemError when a declared root does not exist.
var ErrRootMissing = errors.New("source root missing")

// FilesystemError reports an unreadable source tree.
type FilesystemError struct {
	Root string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("source tree %s: %v", e.Root, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// FindFilesByExtension recursively lists every file below root whose name
// ends with extension. Paths are returned relative to root, slash-separated
// and sorted.
func FindFilesByExtension(root string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FilesystemError{Root: root, Err: ErrRootMissing}
		}
		return nil, &FilesystemError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &FilesystemError{Root: root, Err: errors.New("not a directory")}
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), extension) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &FilesystemError{Root: root, Err: err}
	}

	sort.Strings(files)
	return files, nil
}

// Tree is a snapshot of the source files below Root.
type Tree struct {
	Root   string
	Layout platform.Layout
	Files  []string
}

// Scan walks root once and records every candidate source file. The library
// and first-party roots named by layout must both exist.
func Scan(root string, layout platform.Layout) (*Tree, error) {
	for _, sub := range []string{layout.LibraryRoot, layout.SourceRoot} {
		dir := filepath.Join(root, filepath.FromSlash(sub))
		if _, err := os.Stat(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &FilesystemError{Root: dir, Err: ErrRootMissing}
			}
			return nil, &FilesystemError{Root: dir, Err: err}
		}
	}

	files, err := FindFilesByExtension(root, layout.Extension)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Layout: layout, Files: files}, nil
}

// Relevant returns the sorted subset of the tree that participates in plat's
// compilation.
func (t *Tree) Relevant(plat platform.Platform) []string {
	var out []string
	for _, f := range t.Files {
		if t.Layout.Relevant(f, plat) {
			out = append(out, f)
		}
	}
	return out
}
