// Package catalog holds the fixed set of compilation units a build can select
// from.
//
// A catalog is assembled in two phases. First every unit is declared as plain
// immutable data, in any order. Then New validates the whole set at once:
// unit names and artifact names must be unique and every cross-unit
// reference must name a declared unit. References are resolved by name
// against the validated catalog, so a unit may refer to a sibling declared
// after it, and no unit ever has to be built before another.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/platform"
	"github.com/specialistvlad/bundlegrid/internal/unit"
)

// Declaration binds a logical unit name to a unit.
type Declaration struct {
	Name string
	Unit *unit.Unit
}

// Declare is shorthand for a Declaration literal.
func Declare(name string, u *unit.Unit) Declaration {
	return Declaration{Name: name, Unit: u}
}

// Entry is one catalog member as returned by Entries and Select.
type Entry struct {
	Name string
	Unit *unit.Unit
}

// Catalog is a validated, read-only set of units.
type Catalog struct {
	order []string
	units map[string]*unit.Unit
}

// New validates decls and returns the catalog. All configuration errors are
// reported together.
func New(decls ...Declaration) (*Catalog, error) {
	c := &Catalog{units: make(map[string]*unit.Unit, len(decls))}
	var errs []error

	artifacts := map[string]string{} // artifact -> owning unit name
	for i, d := range decls {
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			errs = append(errs, unit.Configf(unit.ErrEmptyUnitName, "declaration #%d", i))
			continue
		case d.Unit == nil:
			errs = append(errs, unit.Configf(unit.ErrIncompleteUnit, "%q", name))
			continue
		}
		if _, dup := c.units[name]; dup {
			errs = append(errs, unit.Configf(unit.ErrDuplicateUnit, "%q", name))
			continue
		}
		for _, in := range d.Unit.Inputs() {
			if owner, dup := artifacts[in.ArtifactName]; dup {
				errs = append(errs, unit.Configf(unit.ErrDuplicateArtifact, "%q produced by both %q and %q", in.ArtifactName, owner, name))
				continue
			}
			artifacts[in.ArtifactName] = name
		}
		c.units[name] = d.Unit
		c.order = append(c.order, name)
	}

	// Second phase: every unit is known, resolve references by name.
	for _, name := range c.order {
		for _, ref := range c.units[name].Refs() {
			if _, ok := c.units[ref]; !ok {
				errs = append(errs, unit.Configf(unit.ErrUnknownReference, "unit %q refers to %q", name, ref))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	// Every reference resolves; transforms must now apply cleanly to every
	// Input so a bad declaration fails before anything is compiled.
	for _, name := range c.order {
		u := c.units[name]
		for _, in := range u.Inputs() {
			if _, err := c.Options(u, in); err != nil {
				errs = append(errs, fmt.Errorf("unit %q, artifact %q: %w", name, in.ArtifactName, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is New for static catalogs; it panics on error.
func MustNew(decls ...Declaration) *Catalog {
	c, err := New(decls...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of units.
func (c *Catalog) Len() int { return len(c.order) }

// Names returns unit names in declaration order.
func (c *Catalog) Names() []string { return slices.Clone(c.order) }

// Unit returns the unit declared under name.
func (c *Catalog) Unit(name string) (*unit.Unit, bool) {
	u, ok := c.units[name]
	return u, ok
}

// ArtifactName resolves a unit name to its build artifact name. It has the
// shape of unit.ArtifactLookup.
func (c *Catalog) ArtifactName(name string) (string, bool) {
	u, ok := c.units[name]
	if !ok {
		return "", false
	}
	return u.ArtifactName(), true
}

// Entries returns every unit in declaration order.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, name := range c.order {
		entries = append(entries, Entry{Name: name, Unit: c.units[name]})
	}
	return entries
}

// Select returns the named units in the requested order, or every unit when
// no names are given. Unknown names are reported together.
func (c *Catalog) Select(names ...string) ([]Entry, error) {
	if len(names) == 0 {
		return c.Entries(), nil
	}
	var (
		entries []Entry
		unknown []string
	)
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		u, ok := c.units[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		entries = append(entries, Entry{Name: name, Unit: u})
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown units: %s (available: %s)", strings.Join(unknown, ", "), strings.Join(c.order, ", "))
	}
	return entries, nil
}

// Options computes the final compiler options for one Input of u: the
// platform defaults for the Input's entry symbol, then u's transforms with
// sibling artifact names resolved against this catalog and companion names
// against u's own Inputs.
func (c *Catalog) Options(u *unit.Unit, in platform.Input) (compiler.Options, error) {
	defaults := compiler.Defaults(u.Platform(), in.EntrySymbol)
	scope := unit.Scope{Artifact: c.ArtifactName, Inputs: u.Inputs()}
	return unit.ApplyAll(defaults, scope, u.Transforms()...)
}
