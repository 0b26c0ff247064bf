package catalog

import (
	"sync"

	"github.com/specialistvlad/bundlegrid/internal/entrypoint"
	"github.com/specialistvlad/bundlegrid/internal/platform"
	"github.com/specialistvlad/bundlegrid/internal/unit"
)

// WorkerScriptDefine tells the browser client where to load its worker from.
// Each browser unit points it at the worker companion it builds itself.
const WorkerScriptDefine = "app.platform.browser.Client.WORKER_SCRIPT"

// Built-in unit names.
const (
	MobileRepl    = "mobile_repl"
	MobileTests   = "mobile_tests"
	BrowserTests  = "browser_tests"
	BrowserRepl   = "browser_repl"
	BrowserWorker = "browser_worker"
	EmbeddedTests = "embedded_tests"
	ServerRepl    = "server_repl"
	ServerTests   = "server_tests"
)

// declarations is the first phase of the built-in catalog. browser_worker
// builds the standalone worker; the other browser units carry their own.
func declarations() []Declaration {
	return []Declaration{
		Declare(MobileRepl, unit.Of("mobile.js", platform.Mobile).
			EntryPoint(entrypoint.MobileMain).
			MustBuild()),
		Declare(MobileTests, unit.Of("mobile-tests.js", platform.Mobile).
			EntryPoint(entrypoint.TestMain).
			MustBuild()),
		Declare(BrowserTests, unit.Of("browser-tests.js", platform.Browser).
			EntryPoint(entrypoint.TestMain).
			CustomCompilerOptions(unit.DefineCompanionArtifact(WorkerScriptDefine, entrypoint.BrowserWorker)).
			MustBuild()),
		Declare(BrowserRepl, unit.Of("browser-repl.js", platform.Browser).
			EntryPoint(entrypoint.BrowserReplMain).
			CustomCompilerOptions(unit.DefineCompanionArtifact(WorkerScriptDefine, entrypoint.BrowserWorker)).
			MustBuild()),
		Declare(BrowserWorker, unit.Of("worker.js", platform.Browser).
			EntryPoint(entrypoint.BrowserWorker).
			MustBuild()),
		Declare(EmbeddedTests, unit.Of("embedded-tests.js", platform.Embedded).
			EntryPoint(entrypoint.TestMain).
			MustBuild()),
		Declare(ServerRepl, unit.Of("server-repl.js", platform.Server).
			EntryPoint(entrypoint.ServerReplMain).
			MustBuild()),
		Declare(ServerTests, unit.Of("server-tests.js", platform.Server).
			EntryPoint(entrypoint.TestMain).
			MustBuild()),
	}
}

// Default returns the built-in catalog.
var Default = sync.OnceValue(func() *Catalog {
	return MustNew(declarations()...)
})
