package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// UnitBlock represents the body of a `unit` block from a catalog file.
// Name and DeclRange come from the block header.
type UnitBlock struct {
	Name       string
	Artifact   string         `hcl:"artifact"`
	Platform   string         `hcl:"platform"`
	EntryPoint string         `hcl:"entry_point"`
	Defines    hcl.Expression `hcl:"defines,optional"`
	Flags      hcl.Expression `hcl:"flags,optional"`
	DeclRange  hcl.Range
}

// LayoutBlock represents the optional `layout` block that overrides where
// the source tree keeps shared and platform code.
type LayoutBlock struct {
	Extension   *string `hcl:"extension,optional"`
	LibraryRoot *string `hcl:"library_root,optional"`
	SourceRoot  *string `hcl:"source_root,optional"`
	PlatformDir *string `hcl:"platform_dir,optional"`
}

// fileSchema lists every top-level block a catalog file may contain.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "unit", LabelNames: []string{"name"}},
		{Type: "layout"},
	},
}
