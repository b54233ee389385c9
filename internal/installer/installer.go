// Package installer installs a single package into a private staging prefix
// and extracts the record describing what was installed.
package installer

import (
	_ "embed"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
	"github.com/frederic-klein/yapi/internal/extractor"
	"github.com/frederic-klein/yapi/internal/interpreter"
	"github.com/frederic-klein/yapi/internal/subprocess"
	"github.com/frederic-klein/yapi/internal/system"
)

//go:embed scripts/package_info.py
var packageInfoScript string

// DefaultArgs invoke pip through the context interpreter.
var DefaultArgs = []string{"-m", "pip"}

// Request describes one install.
type Request struct {
	Requirement string // exactly as submitted
	Staging     string // prefix the installer writes into
	Cache       string // installer cache directory
	Editable    bool
}

// Installer runs the external installer and the metadata queries.
type Installer struct {
	runner subprocess.Runner
	args   []string
	probe  system.Prober
	logger *log.Logger

	system *dist.System
}

// New creates an installer. args follow the interpreter on the command line
// (DefaultArgs when empty); probe is only called for OS-tied packages.
func New(runner subprocess.Runner, args []string, probe system.Prober, logger *log.Logger) *Installer {
	if len(args) == 0 {
		args = DefaultArgs
	}
	if probe == nil {
		probe = system.Probe
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{
		runner: runner,
		args:   args,
		probe:  probe,
		logger: logger,
	}
}

// Install installs req.Requirement into req.Staging without dependencies and
// returns the record of the installed package.
func (i *Installer) Install(ctx *interpreter.Context, req Request) (*dist.Record, error) {
	requirement, err := dist.RewriteVCS(req.Requirement)
	if err != nil {
		return nil, err
	}

	out, err := i.runner.Run(i.installCommand(ctx, req, requirement), ctx.Environ, subprocess.Verbose)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInstaller, err, "installing %s", req.Requirement)
	}
	name, err := extractor.PackageName(out)
	if err != nil {
		return nil, err
	}
	i.logger.Debug("staged", "request", req.Requirement, "name", name)

	extras := dist.ParseExtras(req.Requirement)
	meta, err := i.queryMetadata(ctx, dist.WithExtras(name, extras))
	if err != nil {
		return nil, err
	}

	out, err = i.runner.Run(i.command(ctx, "show", "--disable-pip-version-check", "-v", name), ctx.Environ, subprocess.Quiet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataQuery, err, "showing %s", name)
	}
	show := extractor.ParseShow(out)

	record := &dist.Record{
		Identifier:   dist.Identifier(meta.Package.Name, extras, meta.Package.Version),
		Key:          dist.Key(meta.Package.Key, extras),
		Name:         meta.Package.Name,
		ModuleName:   meta.Package.ModuleName,
		Version:      meta.Package.Version,
		Request:      req.Requirement,
		Extras:       extras,
		Description:  show.Summary,
		Location:     show.Location,
		Command:      extractor.Commands(show.ConsoleScripts, extras),
		Requirements: meta.Requirements,
		Python:       ctx.Python,
	}

	if extractor.TiedToOS(show.OSClassifiers) {
		sys, err := i.hostSystem()
		if err != nil {
			return nil, err
		}
		record.System = &sys
	}
	record.Target = dist.TargetFor(record)

	return record, nil
}

func (i *Installer) installCommand(ctx *interpreter.Context, req Request, requirement string) []string {
	args := []string{
		"install",
		"--ignore-installed",
		"--no-deps",
		"--prefix", req.Staging,
		"--cache-dir", req.Cache,
		"--disable-pip-version-check",
		"--no-warn-script-location",
	}
	if req.Editable {
		args = append(args, "--editable")
	}
	args = append(args, requirement)
	return i.command(ctx, args...)
}

func (i *Installer) command(ctx *interpreter.Context, args ...string) []string {
	argv := append([]string{ctx.Command}, i.args...)
	return append(argv, args...)
}

func (i *Installer) queryMetadata(ctx *interpreter.Context, argument string) (*extractor.Metadata, error) {
	out, err := i.runner.Run([]string{ctx.Command, "-c", packageInfoScript, argument}, ctx.Environ, subprocess.Quiet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataQuery, err, "querying metadata for %s", argument)
	}
	return extractor.ParseMetadata([]byte(out))
}

// hostSystem probes the host once per installer.
func (i *Installer) hostSystem() (dist.System, error) {
	if i.system != nil {
		return *i.system, nil
	}
	sys, err := i.probe()
	if err != nil {
		return dist.System{}, err
	}
	i.system = &sys
	return sys, nil
}
