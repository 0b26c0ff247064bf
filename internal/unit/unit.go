// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package unit models a compilation unit: one declared build target that
// produces a named artifact from a filtered source set.
//
// # Core Concepts
//
//   - Unit: the immutable descriptor {artifact name, platform, entry point,
//     option transforms}. It is plain data; building it compiles nothing.
//
//   - Builder: the only way to assemble a Unit. Of starts a declaration,
//     EntryPoint is mandatory, CustomCompilerOptions is optional and Build
//     seals the result. A builder can be built exactly once.
//
//   - Transform: a named pure customization of the default compiler options.
//     Transforms refer to sibling units by name and are resolved against the
//     catalog only when options are computed.
package unit

import (
	"path"
	"slices"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// Unit is an immutable compilation unit.
type Unit struct {
	artifactName string
	platform     platform.Platform
	entryPoint   entrypoint.EntryPoint
	transforms   []Transform
}

// ArtifactName is the file name of the unit's primary artifact.
func (u *Unit) ArtifactName() string { return u.artifactName }

// Platform is the deployment target the unit compiles for.
func (u *Unit) Platform() platform.Platform { return u.platform }

// EntryPoint is the unit's compiler root.
func (u *Unit) EntryPoint() entrypoint.EntryPoint { return u.entryPoint }

// Transforms returns a copy of the unit's option transforms, in order.
func (u *Unit) Transforms() []Transform { return slices.Clone(u.transforms) }

// Refs returns the unit names this unit's transforms read, deduplicated and
// in first-seen order.
func (u *Unit) Refs() []string {
	var refs []string
	for _, t := range u.transforms {
		for _, r := range t.Refs {
			if !slices.Contains(refs, r) {
				refs = append(refs, r)
			}
		}
	}
	return refs
}

// Inputs derives the compiler Inputs for this unit, one per platform Input.
// The platform's primary Input is replaced by the unit's own artifact and
// entry point. Companion Inputs keep their entry symbol and are renamed
// "<artifact stem>-<companion artifact>" so they cannot collide with another
// unit's companions.
func (u *Unit) Inputs() []platform.Input {
	defaults := u.platform.Inputs()
	inputs := make([]platform.Input, 0, max(len(defaults), 1))
	inputs = append(inputs, platform.Input{ArtifactName: u.artifactName, EntrySymbol: u.entryPoint.Symbol()})

	if len(defaults) < 2 {
		return inputs
	}
	stem := strings.TrimSuffix(u.artifactName, path.Ext(u.artifactName))
	for _, companion := range defaults[1:] {
		inputs = append(inputs, platform.Input{
			ArtifactName: stem + "-" + companion.ArtifactName,
			EntrySymbol:  companion.EntrySymbol,
		})
	}
	return inputs
}

// Builder assembles a Unit.
type Builder struct {
	unit  Unit
	set   bool
	built bool
}

// Of begins the declaration of a unit producing artifactName on plat.
func Of(artifactName string, plat platform.Platform) *Builder {
	return &Builder{unit: Unit{artifactName: artifactName, platform: plat}}
}

// EntryPoint sets the unit's compiler root. It is required.
func (b *Builder) EntryPoint(ep entrypoint.EntryPoint) *Builder {
	b.unit.entryPoint = ep
	b.set = true
	return b
}

// CustomCompilerOptions appends option transforms, applied in order after
// the platform defaults.
func (b *Builder) CustomCompilerOptions(transforms ...Transform) *Builder {
	b.unit.transforms = append(b.unit.transforms, transforms...)
	return b
}

// Build validates the declaration and returns the sealed Unit.
func (b *Builder) Build() (*Unit, error) {
	if b.built {
		return nil, Configf(ErrBuilderReused, "unit %q", b.unit.artifactName)
	}
	b.built = true

	u := b.unit
	if strings.TrimSpace(u.artifactName) == "" {
		return nil, Configf(ErrEmptyArtifact, "platform %s", u.platform)
	}
	if !u.platform.Valid() {
		return nil, Configf(ErrUnknownPlatform, "unit %q: %s", u.artifactName, u.platform)
	}
	if !b.set {
		return nil, Configf(ErrMissingEntryPoint, "unit %q", u.artifactName)
	}
	if !u.entryPoint.Valid() {
		return nil, Configf(ErrUnknownEntryPoint, "unit %q: %s", u.artifactName, u.entryPoint)
	}
	u.transforms = slices.Clone(u.transforms)
	return &u, nil
}

// MustBuild is Build for static declarations; it panics on error.
func (b *Builder) MustBuild() *Unit {
	u, err := b.Build()
	if err != nil {
		panic(err)
	}
	return u
}
