// Package system probes the host operating system.
//
// The descriptor it returns decides the "-<os><major>" suffix of target paths
// and the system clause of definitions for packages that declare an OS
// dependency.
package system

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
)

// Prober returns the descriptor of the host system.
type Prober func() (dist.System, error)

// Probe queries the host operating system family, architecture and major
// version. It fails with an unsupported platform error on families other than
// Linux, macOS and Windows, and with an invalid OS version error when the
// reported version has no integer prefix.
func Probe() (dist.System, error) {
	return probe()
}

// Fixed returns a Prober that always reports s.
func Fixed(s dist.System) Prober {
	return func() (dist.System, error) { return s, nil }
}

var majorRe = regexp.MustCompile(`^\s*(\d+)`)

// parseMajor returns the integer prefix of a platform version string.
func parseMajor(version string) (int, error) {
	m := majorRe.FindStringSubmatch(version)
	if m == nil {
		return 0, errors.New(errors.ErrCodeInvalidOSVersion, "invalid OS version: %q", version)
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidOSVersion, err, "invalid OS version: %q", version)
	}
	return major, nil
}

// parseOSRelease reads KEY=VALUE pairs from an os-release file.
func parseOSRelease(r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	return fields, scanner.Err()
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// linuxSystem builds a descriptor from os-release fields.
func linuxSystem(fields map[string]string, arch string) (dist.System, error) {
	name := strings.ToLower(fields["ID"])
	if name == "" {
		name = dist.PlatformLinux
	}
	major, err := parseMajor(fields["VERSION_ID"])
	if err != nil {
		return dist.System{}, err
	}
	return dist.System{
		Platform: dist.PlatformLinux,
		Arch:     arch,
		OS:       dist.OS{Name: name, MajorVersion: major},
	}, nil
}
