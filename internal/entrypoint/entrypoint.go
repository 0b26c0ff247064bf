// Package entrypoint enumerates the root symbols the compiler treats as
// reachable. An entry point is never executed by bundlegrid; it only names the
// dead-code-elimination root handed to the compiler.
package entrypoint

import (
	"fmt"
	"strings"
)

// EntryPoint is one member of the closed set of compiler roots.
type EntryPoint int

const (
	// Invalid is the zero value and never a legal entry point.
	Invalid EntryPoint = iota
	TestMain
	MobileMain
	BrowserWorker
	BrowserReplMain
	ServerReplMain
)

type descriptor struct {
	key    string
	symbol string
}

var descriptors = map[EntryPoint]descriptor{
	TestMain:        {key: "test_main", symbol: "app.test.main"},
	MobileMain:      {key: "mobile_main", symbol: "app.platform.mobile.main"},
	BrowserWorker:   {key: "browser_worker", symbol: "app.platform.browser.Worker"},
	BrowserReplMain: {key: "browser_repl_main", symbol: "app.platform.browser.replMain"},
	ServerReplMain:  {key: "server_repl_main", symbol: "app.platform.server.replMain"},
}

// All returns every entry point in declaration order.
func All() []EntryPoint {
	return []EntryPoint{TestMain, MobileMain, BrowserWorker, BrowserReplMain, ServerReplMain}
}

// Key is the stable configuration name, e.g. "test_main".
func (e EntryPoint) Key() string {
	return descriptors[e].key
}

// Symbol is the compiler root symbol, e.g. "app.test.main".
func (e EntryPoint) Symbol() string {
	return descriptors[e].symbol
}

// Valid reports whether e belongs to the closed set.
func (e EntryPoint) Valid() bool {
	_, ok := descriptors[e]
	return ok
}

func (e EntryPoint) String() string {
	if !e.Valid() {
		return fmt.Sprintf("EntryPoint(%d)", int(e))
	}
	return e.Key()
}

// Parse resolves a configuration key (case-insensitive) to an entry point.
func Parse(key string) (EntryPoint, error) {
	want := strings.ToLower(strings.TrimSpace(key))
	for _, ep := range All() {
		if ep.Key() == want {
			return ep, nil
		}
	}
	return Invalid, fmt.Errorf("unknown entry point %q", key)
}
