package dist

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeCharRe = regexp.MustCompile(`[^A-Za-z0-9._\-/:%]`)

// Sanitize makes value safe for use in identifiers and file system paths.
// The value is NFKD normalized, non-ASCII runes are dropped and every
// remaining character outside [A-Za-z0-9._-/:%] becomes an underscore.
func Sanitize(value string) string {
	decomposed := norm.NFKD.String(value)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(unsafeCharRe.ReplaceAllString(b.String(), "_"))
}

// Identifier returns the sanitized "<name>[-<extra>...]-<version>" identifier.
func Identifier(name string, extras []string, version string) string {
	parts := append([]string{name}, extras...)
	parts = append(parts, version)
	return Sanitize(strings.Join(parts, "-"))
}

// Key returns the sanitized "<lowercased-name>[-<extra>...]" key.
func Key(name string, extras []string) string {
	parts := append([]string{strings.ToLower(name)}, extras...)
	return Sanitize(strings.Join(parts, "-"))
}
