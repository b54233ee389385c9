// Package subprocess runs external commands under a prescribed environment.
//
// Any output on the error stream is treated as a failure: the installer is
// expected to report progress on stdout only.
package subprocess

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

// Mode selects how command output is handled.
type Mode int

const (
	// Quiet waits for completion and captures both streams.
	Quiet Mode = iota
	// Verbose streams stdout line by line to the debug log.
	Verbose
)

// Runner executes commands. It is implemented by *Driver and by test fakes.
type Runner interface {
	Run(argv []string, environ map[string]string, mode Mode) (string, error)
}

// Error reports a command that exited non-zero or wrote to stderr.
type Error struct {
	Command string
	Stderr  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the process error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Driver runs commands with os/exec.
type Driver struct {
	logger *log.Logger
}

// NewDriver creates a driver logging to logger (log.Default() when nil).
func NewDriver(logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{logger: logger}
}

// Run executes argv with exactly the variables in environ and returns its
// stdout. The executable is looked up on the PATH of environ, not the PATH of
// the current process. Running commands are not interrupted on cancellation.
func (d *Driver) Run(argv []string, environ map[string]string, mode Mode) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}

	command := Quote(argv)
	d.logger.Debug("running", "command", command)

	cmd := exec.Command(lookPath(argv[0], environ["PATH"]), argv[1:]...)
	cmd.Env = Environ(environ)

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr

	var err error
	if mode == Verbose {
		err = d.stream(cmd, &stdout)
	} else {
		cmd.Stdout = &stdout
		err = cmd.Run()
	}

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return stdout.String(), &Error{Command: command, Stderr: msg, Err: err}
	}
	if err != nil {
		return stdout.String(), &Error{Command: command, Err: err}
	}
	return stdout.String(), nil
}

// stream copies stdout lines to the debug log until EOF, then waits for the
// process so that stderr is fully collected.
func (d *Driver) stream(cmd *exec.Cmd, stdout *bytes.Buffer) error {
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		stdout.WriteString(line)
		stdout.WriteByte('\n')
		d.logger.Debug(line)
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		return err
	}
	return scanErr
}

// Environ converts a variable mapping into a sorted KEY=VALUE list.
func Environ(environ map[string]string) []string {
	env := make([]string, 0, len(environ))
	for key, value := range environ {
		env = append(env, key+"="+value)
	}
	sort.Strings(env)
	return env
}

// HostEnviron returns the environment of the current process as a mapping.
func HostEnviron() map[string]string {
	environ := make(map[string]string)
	for _, entry := range os.Environ() {
		if key, value, ok := strings.Cut(entry, "="); ok && key != "" {
			environ[key] = value
		}
	}
	return environ
}

// Quote renders argv as a shell command line for logs.
func Quote(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", arg)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}

// lookPath resolves name against the directories of path. Names containing a
// separator are returned as is; unresolved names fall back to exec's lookup.
func lookPath(name, path string) string {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return name
	}

	candidates := []string{name}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		candidates = append(candidates, name+".exe", name+".bat", name+".cmd")
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		for _, candidate := range candidates {
			full := filepath.Join(dir, candidate)
			if isExecutable(full) {
				return full
			}
		}
	}
	return name
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
