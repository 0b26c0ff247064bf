package compiler

import (
	"maps"
	"slices"

	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
	"github.com/specialistvlad/bundlegrid/internal/platform"
)

// PlatformDefine is set to the lower-cased platform name so dispatch code can
// be folded at compile time.
const PlatformDefine = "app.PLATFORM"

// Options is the compiler option set. Defines replace a named global with a
// string literal; Flags are passed to the compiler verbatim.
type Options struct {
	Defines map[string]string
	Flags   map[string]string
}

// NewOptions returns an empty, writable option set.
func NewOptions() Options {
	return Options{
		Defines: map[string]string{},
		Flags:   map[string]string{},
	}
}

// Defaults builds the option set every compilation of (plat, entrySymbol)
// starts from.
func Defaults(plat platform.Platform, entrySymbol string) Options {
	opts := NewOptions()
	opts.SetDefineToStringLiteral(PlatformDefine, plat.Key())
	opts.SetFlag("compilation_level", "ADVANCED")
	opts.SetFlag("dependency_mode", "PRUNE")
	opts.SetFlag("warning_level", "DEFAULT")

	switch plat {
	case platform.Embedded:
		opts.SetFlag("language_out", "ECMASCRIPT5")
	default:
		opts.SetFlag("language_out", "ECMASCRIPT_2015")
	}

	switch entrySymbol {
	case entrypoint.BrowserWorker.Symbol():
		opts.SetFlag("isolation_mode", "IIFE")
	case entrypoint.TestMain.Symbol():
		opts.SetFlag("generate_exports", "true")
	}
	return opts
}

// Clone returns a deep copy, so transforms never share maps with the
// defaults they started from.
func (o Options) Clone() Options {
	c := NewOptions()
	maps.Copy(c.Defines, o.Defines)
	maps.Copy(c.Flags, o.Flags)
	return c
}

// SetDefineToStringLiteral defines the global name as the literal value.
func (o *Options) SetDefineToStringLiteral(name, value string) {
	if o.Defines == nil {
		o.Defines = map[string]string{}
	}
	o.Defines[name] = value
}

// SetFlag sets a raw compiler flag.
func (o *Options) SetFlag(name, value string) {
	if o.Flags == nil {
		o.Flags = map[string]string{}
	}
	o.Flags[name] = value
}

// Define returns the literal assigned to name.
func (o Options) Define(name string) (string, bool) {
	v, ok := o.Defines[name]
	return v, ok
}

// DefineNames returns the defined names in sorted order.
func (o Options) DefineNames() []string {
	return slices.Sorted(maps.Keys(o.Defines))
}

// FlagNames returns the flag names in sorted order.
func (o Options) FlagNames() []string {
	return slices.Sorted(maps.Keys(o.Flags))
}
