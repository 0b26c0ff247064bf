// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines option Transforms, the pure customizations a unit applies
// on top of its platform's default compiler options.
//
// A transform that needs a sibling unit's artifact name does not capture that
// unit. It names it, and receives the artifact name through an ArtifactLookup
// when the options are computed. The dependency is therefore explicit data
// (Refs) that the catalog can validate before anything is compiled, and the
// order in which units are declared or built never matters. A transform may
// also read the unit's own companion artifact names, so a bundle can locate
// the companion built alongside it.
package unit

import (
	"fmt"

	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// ArtifactLookup resolves a unit name to that unit's build artifact name.
type ArtifactLookup func(unitName string) (string, bool)

// Scope is what a Transform may read while options are computed.
type Scope struct {
	// Artifact resolves sibling unit names.
	Artifact ArtifactLookup
	// Inputs are the Inputs of the unit being customized.
	Inputs []platform.Input
}

// Companion returns the artifact name of the Input compiled from ep.
func (s Scope) Companion(ep entrypoint.EntryPoint) (string, bool) {
	for _, in := range s.Inputs {
		if in.EntrySymbol == ep.Symbol() {
			return in.ArtifactName, true
		}
	}
	return "", false
}

// Transform is one named, pure customization of a compiler option set.
type Transform struct {
	// Name describes the transform in logs and errors.
	Name string
	// Refs lists the unit names Apply reads through the lookup.
	Refs []string
	// Apply mutates opts, which is always a private copy.
	Apply func(opts *compiler.Options, scope Scope) error
}

// DefineString defines a global to a fixed literal.
func DefineString(define, value string) Transform {
	return Transform{
		Name: fmt.Sprintf("define %s=%q", define, value),
		Apply: func(opts *compiler.Options, _ Scope) error {
			opts.SetDefineToStringLiteral(define, value)
			return nil
		},
	}
}

// DefineArtifactOf defines a global to the build artifact name of the unit
// declared as unitName. Only the name is injected, never compiled output, so
// the referenced unit does not have to be built first.
func DefineArtifactOf(define, unitName string) Transform {
	return Transform{
		Name: fmt.Sprintf("define %s=artifact(%s)", define, unitName),
		Refs: []string{unitName},
		Apply: func(opts *compiler.Options, scope Scope) error {
			artifact, ok := scope.Artifact(unitName)
			if !ok {
				return Configf(ErrUnknownReference, "define %s refers to unit %q", define, unitName)
			}
			opts.SetDefineToStringLiteral(define, artifact)
			return nil
		},
	}
}

// DefineCompanionArtifact defines a global to the artifact name of the
// unit's own Input compiled from ep, such as the worker bundle a browser
// unit builds next to its main bundle.
func DefineCompanionArtifact(define string, ep entrypoint.EntryPoint) Transform {
	return Transform{
		Name: fmt.Sprintf("define %s=companion(%s)", define, ep.Key()),
		Apply: func(opts *compiler.Options, scope Scope) error {
			artifact, ok := scope.Companion(ep)
			if !ok {
				return Configf(ErrUnknownReference, "define %s refers to companion %s, which the unit does not build", define, ep.Key())
			}
			opts.SetDefineToStringLiteral(define, artifact)
			return nil
		},
	}
}

// Flag sets a raw compiler flag.
func Flag(name, value string) Transform {
	return Transform{
		Name: fmt.Sprintf("flag %s=%s", name, value),
		Apply: func(opts *compiler.Options, _ Scope) error {
			opts.SetFlag(name, value)
			return nil
		},
	}
}

// ApplyAll runs transforms in order over a copy of defaults.
func ApplyAll(defaults compiler.Options, scope Scope, transforms ...Transform) (compiler.Options, error) {
	opts := defaults.Clone()
	for _, t := range transforms {
		if t.Apply == nil {
			continue
		}
		if err := t.Apply(&opts, scope); err != nil {
			return compiler.Options{}, fmt.Errorf("transform %q: %w", t.Name, err)
		}
	}
	return opts, nil
}
