// Package reqfile reads request strings from pip-style requirements files.
package reqfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Parser reads requirements files.
type Parser struct{}

// NewParser creates a new requirements file parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	includeRe  = regexp.MustCompile(`^(?:-r|--requirement)(?:\s+|=)(\S+)$`)
	editableRe = regexp.MustCompile(`^(?:-e|--editable)(?:\s+|=)(\S+)$`)
	commentRe  = regexp.MustCompile(`(^|\s+)#.*$`)
)

// Parse returns the requests listed in path, in order. Files included with
// "-r" are read relative to the including file. Editable lines yield their
// path or URL; other option lines are ignored.
func (p *Parser) Parse(path string) ([]string, error) {
	return p.parse(path, map[string]bool{})
}

func (p *Parser) parse(path string, visiting map[string]bool) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if visiting[abs] {
		return nil, fmt.Errorf("requirements file %s includes itself", path)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file: %w", err)
	}
	defer file.Close()

	var requests []string
	var pending string

	scanner := bufio.NewScanner(file)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := commentRe.ReplaceAllString(scanner.Text(), "")

		// Backslash continuation
		if strings.HasSuffix(line, `\`) {
			pending += strings.TrimSuffix(line, `\`)
			continue
		}
		line = strings.TrimSpace(pending + line)
		pending = ""

		if line == "" {
			continue
		}

		if matches := includeRe.FindStringSubmatch(line); matches != nil {
			included := matches[1]
			if !filepath.IsAbs(included) {
				included = filepath.Join(filepath.Dir(path), included)
			}
			nested, err := p.parse(included, visiting)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineno, err)
			}
			requests = append(requests, nested...)
			continue
		}

		if matches := editableRe.FindStringSubmatch(line); matches != nil {
			requests = append(requests, matches[1])
			continue
		}

		if strings.HasPrefix(line, "-") {
			continue
		}

		requests = append(requests, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements file: %w", err)
	}
	if pending = strings.TrimSpace(pending); pending != "" && !strings.HasPrefix(pending, "-") {
		requests = append(requests, pending)
	}

	return requests, nil
}
