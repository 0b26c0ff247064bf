package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/bundlegrid/internal/bggohcl"
	"github.com/specialistvlad/bundlegrid/internal/config"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/unit"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL catalog loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their unit and
// layout blocks into one model. Unit names must be unique across all files
// and at most one layout block may exist.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{}

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no .hcl catalog files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	declared := make(map[string]hcl.Range)
	var layoutBlocks hcl.Blocks

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		content, diags := hclFile.Body.Content(fileSchema)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range content.Blocks {
			switch block.Type {
			case "layout":
				layoutBlocks = append(layoutBlocks, block)
			case "unit":
				ub, diags := l.decodeUnitBlock(block)
				if diags.HasErrors() {
					return nil, nil, fmt.Errorf("failed to decode unit %q in %s: %w", block.Labels[0], file, diags)
				}
				if first, dup := declared[ub.Name]; dup {
					diags = append(diags, &hcl.Diagnostic{
						Severity: hcl.DiagError,
						Summary:  "Duplicate unit block",
						Detail:   fmt.Sprintf("A unit named %q was already declared at %s.", ub.Name, first),
						Subject:  &block.DefRange,
					})
					return nil, nil, unit.Configf(unit.ErrDuplicateUnit, "%s", diags.Error())
				}
				declared[ub.Name] = block.DefRange

				u, err := l.translateUnit(ctx, ub)
				if err != nil {
					return nil, nil, err
				}
				model.Units = append(model.Units, u)
			}
		}
	}

	layoutBlock, diags := bggohcl.FindUniqueBlock(layoutBlocks, "layout")
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("invalid catalog layout: %w", diags)
	}
	if layoutBlock != nil {
		var lb LayoutBlock
		if diags := gohcl.DecodeBody(layoutBlock.Body, nil, &lb); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode layout block: %w", diags)
		}
		model.Layout = l.translateLayout(&lb)
	}

	logger.Debug("HCL loading complete.", "units", len(model.Units), "layout", model.Layout != nil)
	return model, NewConverter(), nil
}

func (l *Loader) decodeUnitBlock(block *hcl.Block) (*UnitBlock, hcl.Diagnostics) {
	ub := &UnitBlock{Name: block.Labels[0], DeclRange: block.DefRange}
	diags := gohcl.DecodeBody(block.Body, nil, ub)
	return ub, diags
}

// findAllHCLFiles walks all given paths and returns a sorted list of all
// .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing catalog path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		for _, p := range found {
			add(p)
		}
	}
	return allFiles, nil
}
