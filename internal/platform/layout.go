package platform

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Layout names the roots of a shared source tree. All paths are relative to
// the tree root and use forward slashes.
type Layout struct {
	// Extension is the recognized source file suffix, including the dot.
	Extension string `yaml:"extension"`
	// LibraryRoot holds third-party code compiled into every platform.
	LibraryRoot string `yaml:"library_root"`
	// SourceRoot holds first-party code.
	SourceRoot string `yaml:"source_root"`
	// PlatformDir is the platform subtree, relative to SourceRoot.
	PlatformDir string `yaml:"platform_dir"`
}

// DefaultLayout is lib/ for libraries and src/ with a src/platform/ subtree.
func DefaultLayout() Layout {
	return Layout{
		Extension:   ".js",
		LibraryRoot: "lib",
		SourceRoot:  "src",
		PlatformDir: "platform",
	}
}

// Validate rejects layouts the relevance filter cannot interpret.
func (l Layout) Validate() error {
	var errs []error
	if !strings.HasPrefix(l.Extension, ".") || len(l.Extension) < 2 {
		errs = append(errs, fmt.Errorf("extension %q must start with a dot", l.Extension))
	}
	for field, root := range map[string]string{
		"library_root": l.LibraryRoot,
		"source_root":  l.SourceRoot,
		"platform_dir": l.PlatformDir,
	} {
		if _, ok := normalize(root); !ok || root == "" {
			errs = append(errs, fmt.Errorf("%s %q must be a non-empty relative path", field, root))
		}
	}
	return errors.Join(errs...)
}

// PlatformRoot is the platform subtree as a path from the tree root.
func (l Layout) PlatformRoot() string {
	return path.Join(l.SourceRoot, l.PlatformDir)
}

// Relevant decides whether the file at p participates in plat's bundle.
//
// Library files and platform-agnostic first-party files are always relevant.
// Files directly inside the platform subtree are dispatch glue and are
// relevant everywhere. Files inside a named platform folder are relevant only
// to the platform whose lower-cased name matches that folder. Anything else,
// including paths that cannot be normalized, is not relevant.
func (l Layout) Relevant(p string, plat Platform) bool {
	if !plat.Valid() {
		return false
	}
	clean, ok := normalize(p)
	if !ok || !strings.HasSuffix(path.Base(clean), l.Extension) {
		return false
	}
	if within(clean, l.LibraryRoot) {
		return true
	}
	if !within(clean, l.SourceRoot) {
		return false
	}

	platformRoot := l.PlatformRoot()
	if !within(clean, platformRoot) || clean == platformRoot {
		return true
	}

	rest := strings.TrimPrefix(clean, platformRoot+"/")
	folder, _, nested := strings.Cut(rest, "/")
	if !nested {
		return true
	}
	return folder == plat.Key()
}

// normalize cleans p into a relative slash path. Absolute paths and paths
// that climb above the tree root are rejected.
func normalize(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	slashed := filepath.ToSlash(p)
	if path.IsAbs(slashed) || filepath.IsAbs(p) {
		return "", false
	}
	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

// within reports whether p is root or lies below it, comparing whole path
// components.
func within(p, root string) bool {
	r, ok := normalize(root)
	if !ok {
		return false
	}
	if r == "." {
		return true
	}
	return p == r || strings.HasPrefix(p, r+"/")
}
