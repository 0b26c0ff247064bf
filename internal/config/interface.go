package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific catalog loader.
type Loader interface {
	// Load reads every catalog file under paths, translates the unit
	// declarations into the format-agnostic model, and returns a matching
	// Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific value conversion
// implementation. It bridges raw attribute expressions and the plain strings
// compiler options are made of.
type Converter interface {
	// EvalString evaluates expr in evalCtx and renders the result as a
	// compiler option value.
	EvalString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error)

	// ToCtyValue converts a native Go value (like a map[string]string of
	// artifact names) into its equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)
}
