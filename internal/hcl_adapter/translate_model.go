// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/bundlegrid/internal/config"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// translateUnit converts the HCL-specific unit schema into the agnostic model.
func (l *Loader) translateUnit(ctx context.Context, u *UnitBlock) (*config.Unit, error) {
	logger := ctxlog.FromContext(ctx).With("unit", u.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL unit to internal config model.")

	defines, err := mapAttribute(ctx, u.Defines, "defines")
	if err != nil {
		return nil, fmt.Errorf("in unit '%s': %w", u.Name, err)
	}
	flags, err := mapAttribute(ctx, u.Flags, "flags")
	if err != nil {
		return nil, fmt.Errorf("in unit '%s': %w", u.Name, err)
	}

	return &config.Unit{
		Name:       u.Name,
		Artifact:   u.Artifact,
		Platform:   u.Platform,
		EntryPoint: u.EntryPoint,
		Defines:    defines,
		Flags:      flags,
		DeclRange:  u.DeclRange,
	}, nil
}

// translateLayout converts the HCL-specific layout schema into the agnostic model.
func (l *Loader) translateLayout(b *LayoutBlock) *config.Layout {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return &config.Layout{
		Extension:   deref(b.Extension),
		LibraryRoot: deref(b.LibraryRoot),
		SourceRoot:  deref(b.SourceRoot),
		PlatformDir: deref(b.PlatformDir),
	}
}

// mapAttribute splits an object constructor such as
// `defines = { "a.B" = "x" }` into its keys and raw value expressions.
func mapAttribute(ctx context.Context, expr hcl.Expression, attrName string) (map[string]hcl.Expression, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("attribute '%s' must be an object: %w", attrName, diags)
	}

	out := make(map[string]hcl.Expression, len(pairs))
	for _, kv := range pairs {
		key, diags := kv.Key.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid key in '%s': %w", attrName, diags)
		}
		if key.IsNull() || !key.Type().Equals(cty.String) {
			return nil, fmt.Errorf("%s: keys in '%s' must be strings", kv.Key.Range(), attrName)
		}
		name := key.AsString()
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%s: duplicate key %q in '%s'", kv.Key.Range(), name, attrName)
		}
		out[name] = kv.Value
	}
	return out, nil
}
