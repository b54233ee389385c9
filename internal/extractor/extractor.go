// Package extractor parses the output of the installer and of the metadata
// queries run inside the interpreter context.
package extractor

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/frederic-klein/yapi/internal/errors"
)

// OSIndependent is the classifier of packages that run anywhere.
const OSIndependent = "OS Independent"

var (
	installingRe = regexp.MustCompile(`(?m)^\s*Installing collected packages:\s*([^\s,]+)`)
	entryPointRe = regexp.MustCompile(`^([^=\s]+)\s*=\s*([^:\s\[]+)(?::([^\s\[]+))?\s*(?:\[([^\]]*)\])?$`)
)

// PackageName returns the first package named on an
// "Installing collected packages: <name>" line of the installer output.
func PackageName(output string) (string, error) {
	m := installingRe.FindStringSubmatch(output)
	if m == nil {
		return "", errors.New(errors.ErrCodeNameExtraction, "package name could not be extracted")
	}
	return m[1], nil
}

// PackageInfo is the canonical identity of an installed package.
type PackageInfo struct {
	Key        string `json:"key"`
	Name       string `json:"package_name"`
	ModuleName string `json:"module_name"`
	Version    string `json:"installed_version"`
}

// Metadata is the output of the metadata script.
type Metadata struct {
	Package      PackageInfo `json:"package"`
	Requirements []string    `json:"requirements"`
}

// ParseMetadata decodes the JSON printed by the metadata script.
func ParseMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataQuery, err, "parsing package metadata %q", truncate(string(data), 200))
	}
	if meta.Package.Name == "" || meta.Package.Version == "" {
		return nil, errors.New(errors.ErrCodeMetadataQuery, "package metadata lacks name or version: %q", truncate(string(data), 200))
	}
	if meta.Package.Key == "" {
		meta.Package.Key = strings.ToLower(meta.Package.Name)
	}
	if meta.Package.ModuleName == "" {
		meta.Package.ModuleName = strings.ReplaceAll(meta.Package.Key, "-", "_")
	}
	if meta.Requirements == nil {
		meta.Requirements = []string{}
	}
	return &meta, nil
}

// EntryPoint is a console script declared by a package.
type EntryPoint struct {
	Alias  string
	Module string
	Attr   string
	Extras []string // extras the entry point requires
}

// Show holds the fields read from the verbose "show" query.
type Show struct {
	Summary        string
	Location       string
	OSClassifiers  []string // the part after "Operating System ::"
	ConsoleScripts []EntryPoint
}

// ParseShow reads the text printed by "pip show -v".
func ParseShow(output string) *Show {
	show := &Show{}
	var section, group string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		// Indented lines belong to the current section.
		if section != "" && trimmed != "" && (line[0] == ' ' || line[0] == '\t') {
			switch section {
			case "Classifiers":
				if rest, ok := strings.CutPrefix(trimmed, "Operating System ::"); ok {
					show.OSClassifiers = append(show.OSClassifiers, strings.TrimSpace(rest))
				}
			case "Entry-points":
				if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
					group = strings.Trim(trimmed, "[]")
				} else if group == "console_scripts" {
					if ep, ok := parseEntryPoint(trimmed); ok {
						show.ConsoleScripts = append(show.ConsoleScripts, ep)
					}
				}
			}
			continue
		}
		section, group = "", ""

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Summary":
			if value != "UNKNOWN" {
				show.Summary = value
			}
		case "Location":
			show.Location = value
		case "Classifiers", "Entry-points":
			section = key
		}
	}
	return show
}

func parseEntryPoint(line string) (EntryPoint, bool) {
	m := entryPointRe.FindStringSubmatch(line)
	if m == nil {
		return EntryPoint{}, false
	}
	ep := EntryPoint{Alias: m[1], Module: m[2], Attr: m[3]}
	for _, extra := range strings.Split(m[4], ",") {
		if extra = strings.TrimSpace(extra); extra != "" {
			ep.Extras = append(ep.Extras, extra)
		}
	}
	return ep, true
}

// TiedToOS reports whether a set of OS classifiers restricts the package to
// specific operating systems: it must be non-empty and not only "OS Independent".
func TiedToOS(classifiers []string) bool {
	for _, c := range classifiers {
		if c != OSIndependent {
			return true
		}
	}
	return false
}

// Commands maps console script aliases to "python -m <module>" for the entry
// points whose required extras are all in extras.
func Commands(scripts []EntryPoint, extras []string) map[string]string {
	enabled := make(map[string]bool, len(extras))
	for _, extra := range extras {
		enabled[extra] = true
	}

	commands := make(map[string]string)
scripts:
	for _, ep := range scripts {
		for _, extra := range ep.Extras {
			if !enabled[extra] {
				continue scripts
			}
		}
		module := strings.TrimSuffix(ep.Module, ".__main__")
		commands[ep.Alias] = "python -m " + module
	}
	return commands
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
