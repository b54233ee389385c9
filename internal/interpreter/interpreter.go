// Package interpreter resolves the environment the installer runs in.
package interpreter

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
	"github.com/frederic-klein/yapi/internal/subprocess"
)

//go:embed scripts/python_info.py
var pythonInfoScript string

// DefaultCommand is the interpreter executable looked up on the context PATH
// when the environment comes from the environment manager.
const DefaultCommand = "python"

// Context is the environment installer commands run in.
type Context struct {
	Environ map[string]string
	Python  dist.Python
	Command string // interpreter executable, e.g. "python" or "/opt/py/bin/python3.11"
}

// Resolver produces a Context from an interpreter selector.
type Resolver struct {
	runner  subprocess.Runner
	manager []string
	host    map[string]string
}

// NewResolver creates a resolver. manager is the argv prefix used to turn a
// textual request into an environment, e.g. ["wiz", "use"].
func NewResolver(runner subprocess.Runner, manager []string) *Resolver {
	return &Resolver{
		runner:  runner,
		manager: manager,
		host:    subprocess.HostEnviron(),
	}
}

// Resolve builds the context for selector. A selector containing a path
// separator, or naming an existing file, is an interpreter binary whose
// directory is prepended to the host PATH. Any other selector is a request
// such as "python==2.7.*" resolved by the environment manager.
//
// The library path of staging is prepended to PYTHONPATH so that queries run
// in the context can import freshly staged packages.
func (r *Resolver) Resolve(selector, staging string) (*Context, error) {
	var (
		ctx *Context
		err error
	)
	if isPath(selector) {
		ctx, err = r.fromBinary(selector)
	} else {
		ctx, err = r.fromManager(selector)
	}
	if err != nil {
		return nil, err
	}

	out, err := r.runner.Run([]string{ctx.Command, "-c", pythonInfoScript}, ctx.Environ, subprocess.Quiet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInterpreter, err, "querying interpreter %s", selector)
	}
	if err := json.Unmarshal([]byte(out), &ctx.Python); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInterpreter, err, "parsing interpreter info for %s", selector)
	}
	if ctx.Python.Identifier == "" || ctx.Python.LibraryPath == "" {
		return nil, errors.New(errors.ErrCodeInterpreter, "incomplete interpreter info for %s: %q", selector, out)
	}

	ctx.Environ["PYTHONWARNINGS"] = "ignore:DEPRECATION"
	sitePackages := filepath.Join(staging, filepath.FromSlash(ctx.Python.LibraryPath))
	ctx.Environ["PYTHONPATH"] = prependList(sitePackages, ctx.Environ["PYTHONPATH"])

	return ctx, nil
}

func (r *Resolver) fromBinary(selector string) (*Context, error) {
	path, err := filepath.Abs(selector)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInterpreter, err, "resolving interpreter path %s", selector)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInterpreter, err, "interpreter not found")
	}

	environ := make(map[string]string, len(r.host)+2)
	for key, value := range r.host {
		environ[key] = value
	}
	environ["PATH"] = prependList(filepath.Dir(path), environ["PATH"])

	return &Context{Environ: environ, Command: path}, nil
}

func (r *Resolver) fromManager(request string) (*Context, error) {
	if len(r.manager) == 0 {
		return nil, errors.New(errors.ErrCodeInterpreter, "no environment manager configured to resolve %q", request)
	}

	argv := append(append([]string{}, r.manager...), request, "--", "env")
	out, err := r.runner.Run(argv, r.host, subprocess.Quiet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInterpreter, err, "resolving interpreter request %q", request)
	}

	environ := parseEnv(out)
	if environ["PATH"] == "" {
		return nil, errors.New(errors.ErrCodeInterpreter, "environment for %q does not define PATH", request)
	}
	return &Context{Environ: environ, Command: DefaultCommand}, nil
}

// isPath reports whether selector designates an interpreter binary.
func isPath(selector string) bool {
	if strings.ContainsRune(selector, '/') || strings.ContainsRune(selector, filepath.Separator) {
		return true
	}
	info, err := os.Stat(selector)
	return err == nil && !info.IsDir()
}

// parseEnv reads the KEY=VALUE lines printed by env. Lines without a
// separator continue the previous value.
func parseEnv(out string) map[string]string {
	environ := make(map[string]string)
	var last string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if ok && key != "" && !strings.ContainsAny(key, " \t") {
			environ[key] = value
			last = key
			continue
		}
		if last != "" {
			environ[last] += "\n" + line
		}
	}
	return environ
}

func prependList(entry, list string) string {
	if list == "" {
		return entry
	}
	return entry + string(os.PathListSeparator) + list
}
