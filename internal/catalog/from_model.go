package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/bundlegrid/internal/bggohcl"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/config"
	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
	"github.com/specialistvlad/bundlegrid/internal/platform"
	"github.com/specialistvlad/bundlegrid/internal/unit"
)

// Root variables of catalog expressions: unit.browser_worker.artifact names
// a sibling unit's artifact, companion.browser_worker names the artifact this
// unit builds from that entry point.
const (
	unitVar      = "unit"
	companionVar = "companion"
)

// FromModel builds and validates a catalog from a loaded catalog file.
//
// Define and flag values that only hold literals are evaluated right away.
// Values that refer to unit.<name>.artifact become transforms whose Refs name
// those units, so the references are validated by New and resolved against
// the finished catalog. companion.<entry_point> resolves against the unit's
// own Inputs.
func FromModel(m *config.Model, conv config.Converter) (*Catalog, error) {
	var errs []error
	decls := make([]Declaration, 0, len(m.Units))

	for _, cu := range m.Units {
		u, err := unitFromModel(cu, conv)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decls = append(decls, Declare(cu.Name, u))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return New(decls...)
}

func unitFromModel(cu *config.Unit, conv config.Converter) (*unit.Unit, error) {
	plat, err := platform.Lookup(cu.Platform)
	if err != nil {
		return nil, unit.Configf(unit.ErrUnknownPlatform, "%s: unit %q: %q", cu.DeclRange, cu.Name, cu.Platform)
	}
	ep, err := entrypoint.Parse(cu.EntryPoint)
	if err != nil {
		return nil, unit.Configf(unit.ErrUnknownEntryPoint, "%s: unit %q: %q", cu.DeclRange, cu.Name, cu.EntryPoint)
	}

	var (
		transforms []unit.Transform
		errs       []error
	)
	for _, name := range slices.Sorted(maps.Keys(cu.Defines)) {
		t, err := exprTransform("define", name, cu.Defines[name], conv, (*compiler.Options).SetDefineToStringLiteral)
		if err != nil {
			errs = append(errs, fmt.Errorf("unit %q: %w", cu.Name, err))
			continue
		}
		transforms = append(transforms, t)
	}
	for _, name := range slices.Sorted(maps.Keys(cu.Flags)) {
		t, err := exprTransform("flag", name, cu.Flags[name], conv, (*compiler.Options).SetFlag)
		if err != nil {
			errs = append(errs, fmt.Errorf("unit %q: %w", cu.Name, err))
			continue
		}
		transforms = append(transforms, t)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	u, err := unit.Of(cu.Artifact, plat).
		EntryPoint(ep).
		CustomCompilerOptions(transforms...).
		Build()
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", cu.Name, err)
	}
	return u, nil
}

// exprTransform turns one define or flag expression into a Transform.
func exprTransform(
	kind, name string,
	expr hcl.Expression,
	conv config.Converter,
	set func(opts *compiler.Options, name, value string),
) (unit.Transform, error) {
	refs, err := exprRefs(expr)
	if err != nil {
		return unit.Transform{}, fmt.Errorf("%s %s: %w", kind, name, err)
	}

	if refs.empty() {
		value, err := conv.EvalString(expr, nil)
		if err != nil {
			return unit.Transform{}, fmt.Errorf("%s %s: %w", kind, name, err)
		}
		if kind == "define" {
			return unit.DefineString(name, value), nil
		}
		return unit.Flag(name, value), nil
	}

	if kind == "define" && isBareTraversal(expr) {
		if len(refs.units) == 1 {
			return unit.DefineArtifactOf(name, refs.units[0]), nil
		}
		return unit.DefineCompanionArtifact(name, refs.companions[0]), nil
	}

	return unit.Transform{
		Name: fmt.Sprintf("%s %s=expr(%s)", kind, name, expr.Range()),
		Refs: refs.units,
		Apply: func(opts *compiler.Options, scope unit.Scope) error {
			evalCtx, err := refs.evalContext(scope, conv)
			if err != nil {
				return err
			}
			value, err := conv.EvalString(expr, evalCtx)
			if err != nil {
				return err
			}
			set(opts, name, value)
			return nil
		},
	}, nil
}

// exprVars are the variables one catalog expression reads.
type exprVars struct {
	units      []string
	companions []entrypoint.EntryPoint
}

func (v exprVars) empty() bool { return len(v.units) == 0 && len(v.companions) == 0 }

// exprRefs collects the variables expr refers to. A catalog expression may
// only use unit.<name>.artifact and companion.<entry_point>.
func exprRefs(expr hcl.Expression) (exprVars, error) {
	var v exprVars
	for _, trav := range expr.Variables() {
		path, ok := bggohcl.AttrPath(trav)
		switch {
		case ok && len(path) == 3 && path[0] == unitVar && path[2] == "artifact":
			if !slices.Contains(v.units, path[1]) {
				v.units = append(v.units, path[1])
			}
		case ok && len(path) == 2 && path[0] == companionVar:
			ep, err := entrypoint.Parse(path[1])
			if err != nil {
				return exprVars{}, unit.Configf(unit.ErrUnknownEntryPoint, "%s: %s", trav.SourceRange(), bggohcl.TraversalKey(trav))
			}
			if !slices.Contains(v.companions, ep) {
				v.companions = append(v.companions, ep)
			}
		default:
			return exprVars{}, unit.Configf(unit.ErrUnknownReference,
				"%s: unsupported reference %s, expected %s.<name>.artifact or %s.<entry_point>",
				trav.SourceRange(), bggohcl.TraversalKey(trav), unitVar, companionVar)
		}
	}
	return v, nil
}

func isBareTraversal(expr hcl.Expression) bool {
	_, diags := hcl.AbsTraversalForExpr(expr)
	return !diags.HasErrors()
}

// evalContext exposes the artifact names of the referenced units as
// unit.<name>.artifact and of the unit's own companions as
// companion.<entry_point>.
func (v exprVars) evalContext(scope unit.Scope, conv config.Converter) (*hcl.EvalContext, error) {
	vars := map[string]cty.Value{}

	if len(v.units) > 0 {
		units := make(map[string]map[string]string, len(v.units))
		for _, ref := range v.units {
			artifact, ok := scope.Artifact(ref)
			if !ok {
				return nil, unit.Configf(unit.ErrUnknownReference, "unit %q", ref)
			}
			units[ref] = map[string]string{"artifact": artifact}
		}
		val, err := conv.ToCtyValue(units)
		if err != nil {
			return nil, err
		}
		vars[unitVar] = val
	}

	if len(v.companions) > 0 {
		companions := make(map[string]string, len(v.companions))
		for _, ep := range v.companions {
			artifact, ok := scope.Companion(ep)
			if !ok {
				return nil, unit.Configf(unit.ErrUnknownReference, "companion %s is not built by this unit", ep.Key())
			}
			companions[ep.Key()] = artifact
		}
		val, err := conv.ToCtyValue(companions)
		if err != nil {
			return nil, err
		}
		vars[companionVar] = val
	}

	return &hcl.EvalContext{Variables: vars}, nil
}
