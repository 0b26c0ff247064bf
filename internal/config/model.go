package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of one or more
// catalog files.
type Model struct {
	// Units keep their declaration order across files.
	Units []*Unit
	// Layout is nil unless a file declared one.
	Layout *Layout
}

// Unit is the format-agnostic representation of a `unit` block.
type Unit struct {
	Name       string
	Artifact   string
	Platform   string
	EntryPoint string
	// Defines and Flags keep raw expressions so that references to sibling
	// units can be resolved once the whole catalog is known.
	Defines map[string]hcl.Expression
	Flags   map[string]hcl.Expression
	// DeclRange points at the block header, for diagnostics.
	DeclRange hcl.Range
}

// Layout is the format-agnostic representation of a `layout` block. Empty
// fields keep their default.
type Layout struct {
	Extension   string
	LibraryRoot string
	SourceRoot  string
	PlatformDir string
}

// UnitNames returns the declared unit names in order.
func (m *Model) UnitNames() []string {
	names := make([]string, 0, len(m.Units))
	for _, u := range m.Units {
		names = append(names, u.Name)
	}
	return names
}
