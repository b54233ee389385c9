package dist

import (
	"fmt"
	"path"
	"strings"
)

// TargetPath returns the path of an installed package relative to the output
// root: "<name>/<identifier>-py<MMm>[-<os><major>]".
//
// The result only depends on its arguments, so two records sharing them are
// the same artifact on disk.
func TargetPath(name, identifier, pythonIdentifier string, os *OS) string {
	dir := fmt.Sprintf("%s-py%s", identifier, strings.ReplaceAll(pythonIdentifier, ".", ""))
	if os != nil {
		dir = fmt.Sprintf("%s-%s%d", dir, os.Name, os.MajorVersion)
	}
	return path.Join(name, dir)
}

// TargetFor computes the target path of a record from its own fields.
func TargetFor(r *Record) string {
	var os *OS
	if r.System != nil {
		os = &r.System.OS
	}
	return TargetPath(r.Name, r.Identifier, r.Python.Identifier, os)
}

// Constraint formats the OS range a system-tied package is compatible with,
// e.g. "centos >= 7, < 8".
func (o OS) Constraint() string {
	return fmt.Sprintf("%s >= %d, < %d", o.Name, o.MajorVersion, o.MajorVersion+1)
}
