// Package promoter moves staged installs to their final location under the
// output root. It is the only writer of the output root.
package promoter

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
)

// Policy decides what happens when a target already exists.
type Policy string

const (
	Ask Policy = "ask"
	Yes Policy = "yes" // overwrite
	No  Policy = "no"  // skip
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Ask, Yes, No:
		return p, nil
	}
	return "", fmt.Errorf("invalid overwrite policy %q (want ask, yes or no)", s)
}

// ErrDecisionCancelled is returned by a Decider when the user dismissed the
// question. The package is skipped and the policy stays unchanged.
var ErrDecisionCancelled = stderrors.New("decision cancelled")

// Decider is asked whether to overwrite identifier. It returns the decision
// and the policy to apply to later collisions.
type Decider func(identifier string) (overwrite bool, sticky Policy, err error)

// Outcome is the result of a promotion.
type Outcome int

const (
	Installed Outcome = iota
	Overwritten
	Skipped
)

// String returns the outcome as logged.
func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case Overwritten:
		return "overwritten"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Promoted reports whether the staged tree reached the output root.
func (o Outcome) Promoted() bool {
	return o == Installed || o == Overwritten
}

// Promoter moves staged trees under an output root.
type Promoter struct {
	output string
	decide Decider
	logger *log.Logger
}

// New creates a promoter writing under output. A nil decide skips every
// collision that reaches the Ask policy.
func New(output string, decide Decider, logger *log.Logger) *Promoter {
	if logger == nil {
		logger = log.Default()
	}
	return &Promoter{output: output, decide: decide, logger: logger}
}

// Path returns the absolute location of record under the output root.
func (p *Promoter) Path(record *dist.Record) string {
	return filepath.Join(p.output, filepath.FromSlash(record.Target))
}

// Promote moves the contents of staging to the target of record, applying
// policy when the target exists. It returns the outcome and the policy to use
// for the rest of the run.
func (p *Promoter) Promote(record *dist.Record, staging string, policy Policy) (Outcome, Policy, error) {
	dest := p.Path(record)

	info, err := os.Lstat(dest)
	if os.IsNotExist(err) {
		if err := move(staging, dest); err != nil {
			return Skipped, policy, err
		}
		return Installed, policy, nil
	}
	if err != nil {
		return Skipped, policy, errors.Wrap(errors.ErrCodeFilesystem, err, "inspecting %s", dest)
	}
	if !info.IsDir() {
		return Skipped, policy, errors.New(errors.ErrCodeFilesystem, "target %s exists and is not a directory", dest)
	}

	overwrite := policy == Yes
	if policy == Ask {
		overwrite, policy, err = p.ask(record.Identifier)
		if err != nil {
			return Skipped, Ask, err
		}
	}

	if !overwrite {
		p.logger.Warn("skipping installed package", "identifier", record.Identifier, "path", dest)
		return Skipped, policy, nil
	}

	p.logger.Warn("overwriting installed package", "identifier", record.Identifier, "path", dest)
	if err := os.RemoveAll(dest); err != nil {
		return Skipped, policy, errors.Wrap(errors.ErrCodeFilesystem, err, "removing %s", dest)
	}
	if err := move(staging, dest); err != nil {
		return Skipped, policy, err
	}
	return Overwritten, policy, nil
}

func (p *Promoter) ask(identifier string) (bool, Policy, error) {
	if p.decide == nil {
		return false, Ask, nil
	}
	overwrite, sticky, err := p.decide(identifier)
	if stderrors.Is(err, ErrDecisionCancelled) {
		return false, Ask, nil
	}
	if err != nil {
		return false, Ask, fmt.Errorf("asking to overwrite %s: %w", identifier, err)
	}
	if sticky == "" {
		sticky = Ask
	}
	return overwrite, sticky, nil
}

// move renames src to dest, copying when a rename is not possible (e.g.
// across file systems). dest must not exist.
func move(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "creating %s", filepath.Dir(dest))
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyTree(src, dest); err != nil {
		os.RemoveAll(dest)
		return errors.Wrap(errors.ErrCodeFilesystem, err, "copying %s to %s", src, dest)
	}
	return nil
}
