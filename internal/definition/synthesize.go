package definition

import (
	"os"
	"path"
	"path/filepath"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
)

// Synthesizer turns installed records into definitions.
type Synthesizer struct {
	installRoot string
}

// NewSynthesizer creates a synthesizer. When installRoot is not empty,
// install-location is the absolute target of the package under it instead of
// the InstallLocation placeholder.
func NewSynthesizer(installRoot string) *Synthesizer {
	return &Synthesizer{installRoot: installRoot}
}

// Synthesize returns the definition for record, whose files are at dir.
//
// A definition shipped by the package in share/wiz/<module>/wiz.json is
// reused with its requirements replaced by the record's. Otherwise one is
// created from the record.
func (s *Synthesizer) Synthesize(record *dist.Record, dir string) (*Definition, error) {
	shipped, err := s.retrieve(record, dir)
	if err != nil {
		return nil, err
	}
	if shipped != nil {
		return shipped, nil
	}
	return s.create(record, dir), nil
}

// ShippedPath returns where a package ships its own definition.
func ShippedPath(record *dist.Record, dir string) string {
	return filepath.Join(dir, "share", "wiz", record.ModuleName, "wiz.json")
}

func (s *Synthesizer) retrieve(record *dist.Record, dir string) (*Definition, error) {
	if record.ModuleName == "" {
		return nil, nil
	}
	p := ShippedPath(record, dir)
	if !exists(p) {
		return nil, nil
	}
	d, err := Load(p)
	if err != nil {
		return nil, err
	}
	if d.Identifier == "" {
		return nil, errors.New(errors.ErrCodeDefinition, "shipped definition %s has no identifier", p)
	}
	d.Requirements = requirements(record)
	if d.System == nil {
		d.System = system(record)
	}
	if d.InstallLocation == "" {
		d.InstallLocation = s.location(record)
	}
	return d, nil
}

func (s *Synthesizer) create(record *dist.Record, dir string) *Definition {
	d := &Definition{
		Identifier:      record.Key,
		Version:         record.Version,
		Description:     record.Description,
		System:          system(record),
		Requirements:    requirements(record),
		InstallLocation: s.location(record),
	}
	if len(record.Command) > 0 {
		d.Command = make(map[string]string, len(record.Command))
		for alias, cmd := range record.Command {
			d.Command[alias] = cmd
		}
	}

	environ := map[string]string{}
	if lib := record.Python.LibraryPath; lib != "" && isDir(filepath.Join(dir, filepath.FromSlash(lib))) {
		environ["PYTHONPATH"] = InstallLocation + "/" + lib + ":${PYTHONPATH}"
	}
	if isDir(filepath.Join(dir, "bin")) {
		environ["PATH"] = InstallLocation + "/bin:${PATH}"
	}
	if len(environ) > 0 {
		d.Environ = environ
	}
	return d
}

func (s *Synthesizer) location(record *dist.Record) string {
	if s.installRoot == "" {
		return InstallLocation
	}
	return path.Join(filepath.ToSlash(s.installRoot), record.Target)
}

func requirements(record *dist.Record) []string {
	return append([]string{}, record.Requirements...)
}

func system(record *dist.Record) *System {
	if record.System == nil {
		return nil
	}
	return &System{
		Platform: record.System.Platform,
		Arch:     record.System.Arch,
		OS:       record.System.OS.Constraint(),
	}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
