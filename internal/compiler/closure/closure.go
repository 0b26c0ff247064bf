// Package closure drives a Closure-style optimizing compiler distributed as a
// runnable jar. The compiled bundle is read from the compiler's stdout.
package closure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// ErrNoJar is returned when no compiler jar has been configured.
var ErrNoJar = errors.New("closure: compiler jar not configured")

// Compiler shells out to `java -jar <Jar>`.
type Compiler struct {
	Java string
	Jar  string
	// ExtraArgs are appended after the generated flags.
	ExtraArgs []string
}

// New returns a Compiler using the given java binary ("java" when empty).
func New(java, jar string) *Compiler {
	if java == "" {
		java = "java"
	}
	return &Compiler{Java: java, Jar: jar}
}

// Args renders req as compiler command-line arguments. The order is
// deterministic: flags and defines are sorted by name, files keep the
// request's order.
func (c *Compiler) Args(req compiler.Request) []string {
	args := []string{"-jar", c.Jar, "--entry_point=" + req.EntrySymbol}
	for _, name := range req.Options.FlagNames() {
		args = append(args, fmt.Sprintf("--%s=%s", name, req.Options.Flags[name]))
	}
	for _, name := range req.Options.DefineNames() {
		args = append(args, fmt.Sprintf("--define=%s=%s", name, quote(req.Options.Defines[name])))
	}
	for _, f := range req.Files {
		args = append(args, "--js="+f)
	}
	return append(args, c.ExtraArgs...)
}

// Compile implements compiler.Compiler.
func (c *Compiler) Compile(ctx context.Context, req compiler.Request) ([]byte, error) {
	if c.Jar == "" {
		return nil, ErrNoJar
	}
	logger := ctxlog.FromContext(ctx)

	args := c.Args(req)
	cmd := exec.CommandContext(ctx, c.Java, args...)
	cmd.Dir = req.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Invoking compiler.", "entry", req.EntrySymbol, "files", len(req.Files), "args", len(args))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("closure: %w", err)
		}
		return nil, fmt.Errorf("closure: %w: %s", err, msg)
	}
	if stderr.Len() > 0 {
		logger.Warn("Compiler reported warnings.", "entry", req.EntrySymbol, "warnings", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// quote renders a JS string literal in single quotes.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
