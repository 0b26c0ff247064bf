// Package compiler defines the contract with the external optimizing
// compiler: the option set bundlegrid prepares, the request it sends, and the
// error it reports when a compilation is rejected. The compiler's own
// algorithms live outside this module.
package compiler

import (
	"context"
	"fmt"
)

// Request is everything one compilation needs.
type Request struct {
	// Dir is the source tree root the file paths are relative to.
	Dir string
	// Files is the relevant file set, sorted.
	Files []string
	// EntrySymbol is the root the compiler keeps reachable.
	EntrySymbol string
	Options     Options
}

// Compiler turns a request into compiled bytes.
type Compiler interface {
	Compile(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a plain function to the Compiler interface.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// CompileError reports a rejected compilation together with the context
// needed to find which Input failed.
type CompileError struct {
	Unit        string
	Artifact    string
	EntrySymbol string
	FileCount   int
	Err         error
}

func (e *CompileError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("compile %s (unit %s, entry %s, %d files): %v",
		e.Artifact, e.Unit, e.EntrySymbol, e.FileCount, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
