// Package platform is the registry of deployment targets. The set of
// platforms is closed: each one owns its default compiler Inputs and decides,
// through the relevance filter, which source files take part in its bundle.
package platform

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
)

// Platform identifies one deployment target.
type Platform int

const (
	Invalid Platform = iota
	Mobile
	Browser
	Server
	Embedded
)

// Input pairs one build artifact with the root symbol that produces it.
type Input struct {
	ArtifactName string
	EntrySymbol  string
}

func (in Input) String() string {
	return in.ArtifactName + "@" + in.EntrySymbol
}

type record struct {
	name   string
	inputs []Input
}

func input(artifact string, ep entrypoint.EntryPoint) Input {
	return Input{ArtifactName: artifact, EntrySymbol: ep.Symbol()}
}

var registry = map[Platform]record{
	Mobile: {
		name:   "MOBILE",
		inputs: []Input{input("mobile.js", entrypoint.TestMain)},
	},
	Browser: {
		name: "BROWSER",
		inputs: []Input{
			input("browser.js", entrypoint.TestMain),
			input("worker.js", entrypoint.BrowserWorker),
		},
	},
	Server: {
		name:   "SERVER",
		inputs: []Input{input("server.js", entrypoint.TestMain)},
	},
	Embedded: {
		name:   "EMBEDDED",
		inputs: []Input{input("embedded.js", entrypoint.TestMain)},
	},
}

// All returns every declared platform in a fixed order.
func All() []Platform {
	return []Platform{Mobile, Browser, Server, Embedded}
}

// Lookup resolves a platform by name, ignoring case.
func Lookup(name string) (Platform, error) {
	for _, p := range All() {
		if strings.EqualFold(p.Name(), strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return Invalid, fmt.Errorf("unknown platform %q", name)
}

// Valid reports whether p is a declared platform.
func (p Platform) Valid() bool {
	_, ok := registry[p]
	return ok
}

// Name is the platform's canonical upper-case name, e.g. "BROWSER".
func (p Platform) Name() string {
	return registry[p].name
}

// Key is the lower-cased name used to match platform source directories.
func (p Platform) Key() string {
	return strings.ToLower(p.Name())
}

// Inputs returns a copy of the platform's default Inputs. The first Input is
// the primary bundle; the rest are companion bundles such as a worker.
func (p Platform) Inputs() []Input {
	in := registry[p].inputs
	out := make([]Input, len(in))
	copy(out, in)
	return out
}

// Relevant applies the default layout's relevance filter for this platform.
func (p Platform) Relevant(path string) bool {
	return DefaultLayout().Relevant(path, p)
}

func (p Platform) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Platform(%d)", int(p))
	}
	return p.Name()
}
