// Package orchestrator installs requests and their dependencies one package
// at a time, promoting each into the output root and writing its definition.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/frederic-klein/yapi/internal/definition"
	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
	"github.com/frederic-klein/yapi/internal/installer"
	"github.com/frederic-klein/yapi/internal/interpreter"
	"github.com/frederic-klein/yapi/internal/promoter"
)

// ContextResolver builds the interpreter context for the run.
type ContextResolver interface {
	Resolve(selector, staging string) (*interpreter.Context, error)
}

// Installer installs a single request into a staging prefix.
type Installer interface {
	Install(ctx *interpreter.Context, req installer.Request) (*dist.Record, error)
}

// Promoter moves staged trees into the output root.
type Promoter interface {
	Promote(record *dist.Record, staging string, policy promoter.Policy) (promoter.Outcome, promoter.Policy, error)
	Path(record *dist.Record) string
}

// Synthesizer builds the definition of a promoted record.
type Synthesizer interface {
	Synthesize(record *dist.Record, dir string) (*definition.Definition, error)
}

// DefinitionWriter stores definitions.
type DefinitionWriter interface {
	Write(d *definition.Definition, python dist.Python) (string, error)
}

// Components are the collaborators of a run.
type Components struct {
	Context     ContextResolver
	Installer   Installer
	Promoter    Promoter
	Synthesizer Synthesizer
	Definitions DefinitionWriter
}

// Options control a run.
type Options struct {
	Python          string // interpreter selector
	WorkDir         string // parent of the run's staging and cache directories
	Policy          promoter.Policy
	Editable        bool // install root requests in editable mode
	NoDependencies  bool
	ContinueOnError bool // do not return the aggregated task errors
	FailFast        bool // stop at the first failed task
}

// TaskError is the failure of one queued request.
type TaskError struct {
	Request string
	Parent  string // identifier of the record that required Request, if any
	Err     error
}

func (e *TaskError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("%s: %v", e.Request, e.Err)
	}
	return fmt.Sprintf("%s (required by %s): %v", e.Request, e.Parent, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Result is a promoted record.
type Result struct {
	Record     *dist.Record
	Outcome    promoter.Outcome
	Definition string // path of the written definition
}

// Report summarizes a run.
type Report struct {
	Installed []Result
	Skipped   []*dist.Record
	Errors    []*TaskError
}

// Identifiers returns the identifiers of the promoted records in order.
func (r *Report) Identifiers() []string {
	ids := make([]string, len(r.Installed))
	for i, res := range r.Installed {
		ids[i] = res.Record.Identifier
	}
	return ids
}

// Err joins the task errors, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return stderrors.Join(errs...)
}

// Orchestrator runs installs.
type Orchestrator struct {
	components Components
	opts       Options
	logger     *log.Logger
}

// New creates an orchestrator.
func New(components Components, opts Options, logger *log.Logger) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = promoter.Ask
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{components: components, opts: opts, logger: logger}
}

type item struct {
	request string
	parent  *dist.Record
}

// run is the state of one Run call.
type run struct {
	*Orchestrator

	pyctx   *interpreter.Context
	staging string
	cache   string
	policy  promoter.Policy
	queue   []item

	processed map[string]bool
	installed map[string]*dist.Record
	byKey     map[string]*dist.Record

	report *Report
}

// Run installs requests and, unless disabled, their dependencies.
//
// Each request is installed at most once and each identifier is promoted at
// most once. A failed request does not stop the run unless FailFast is set;
// task errors are joined into the returned error unless ContinueOnError is
// set. Errors that make the run pointless, such as an interpreter that cannot
// be resolved, are returned immediately. Cancellation is checked between
// requests.
func (o *Orchestrator) Run(ctx context.Context, requests []string) (*Report, error) {
	root := filepath.Join(o.opts.WorkDir, "yapi-"+uuid.NewString())
	defer os.RemoveAll(root)

	r := &run{
		Orchestrator: o,
		staging:      filepath.Join(root, "staging"),
		cache:        filepath.Join(root, "cache"),
		policy:       o.opts.Policy,
		processed:    make(map[string]bool),
		installed:    make(map[string]*dist.Record),
		byKey:        make(map[string]*dist.Record),
		report:       &Report{},
	}
	if err := os.MkdirAll(r.cache, 0o755); err != nil {
		return r.report, errors.Wrap(errors.ErrCodeFilesystem, err, "creating %s", r.cache)
	}

	pyctx, err := o.components.Context.Resolve(o.opts.Python, r.staging)
	if err != nil {
		return r.report, err
	}
	r.pyctx = pyctx
	o.logger.Debug("interpreter resolved", "python", pyctx.Python.Identifier, "command", pyctx.Command, "work", root)

	for _, req := range requests {
		r.queue = append(r.queue, item{request: req})
	}

	for len(r.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return r.report, fmt.Errorf("install interrupted: %w", err)
		}

		it := r.queue[0]
		r.queue = r.queue[1:]
		if r.processed[it.request] {
			continue
		}
		r.processed[it.request] = true

		if err := r.process(it); err != nil {
			if errors.Fatal(err) {
				return r.report, err
			}
			taskErr := &TaskError{Request: it.request, Parent: dist.Label(it.parent), Err: err}
			o.logger.Error("failed", "request", it.request, "parent", taskErr.Parent, "err", errors.UserMessage(err))
			r.report.Errors = append(r.report.Errors, taskErr)
			if o.opts.FailFast {
				return r.report, taskErr
			}
		}
	}

	if o.opts.ContinueOnError {
		return r.report, nil
	}
	return r.report, r.report.Err()
}

func (r *run) process(it item) error {
	if err := r.resetStaging(); err != nil {
		return err
	}

	record, err := r.components.Installer.Install(r.pyctx, installer.Request{
		Requirement: it.request,
		Staging:     r.staging,
		Cache:       r.cache,
		Editable:    r.opts.Editable && it.parent == nil,
	})
	if err != nil {
		return err
	}

	if _, ok := r.installed[record.Identifier]; ok {
		r.logger.Info("skipped", "request", it.request, "parent", dist.Label(it.parent), "identifier", record.Identifier, "reason", "duplicate")
		return nil
	}
	r.installed[record.Identifier] = record

	outcome, policy, err := r.components.Promoter.Promote(record, r.staging, r.policy)
	r.policy = policy
	if err != nil {
		return err
	}
	if !outcome.Promoted() {
		r.logger.Info(outcome.String(), "request", it.request, "parent", dist.Label(it.parent), "identifier", record.Identifier)
		r.report.Skipped = append(r.report.Skipped, record)
		return nil
	}

	dir := r.components.Promoter.Path(record)
	def, err := r.components.Synthesizer.Synthesize(record, dir)
	if err != nil {
		return err
	}
	path, err := r.components.Definitions.Write(def, record.Python)
	if err != nil {
		return err
	}

	r.logger.Info(outcome.String(), "request", it.request, "parent", dist.Label(it.parent), "identifier", record.Identifier, "target", record.Target)
	r.report.Installed = append(r.report.Installed, Result{Record: record, Outcome: outcome, Definition: path})
	r.checkConflict(record)

	if !r.opts.NoDependencies {
		for _, req := range record.Requirements {
			r.queue = append(r.queue, item{request: req, parent: record})
		}
	}
	return nil
}

func (r *run) resetStaging() error {
	if err := os.RemoveAll(r.staging); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "cleaning %s", r.staging)
	}
	if err := os.MkdirAll(r.staging, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "creating %s", r.staging)
	}
	return nil
}
