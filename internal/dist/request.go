package dist

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/frederic-klein/yapi/internal/errors"
)

var (
	vcsShortRe = regexp.MustCompile(`^git@([^:/]+):([^@]+\.git)(?:@(.*))?$`)
	extrasRe   = regexp.MustCompile(`.*\[([^\]]+)\]`)
)

// IsVCS reports whether request uses the "git@host:group/repo.git" short form.
func IsVCS(request string) bool {
	return vcsShortRe.MatchString(request)
}

// RewriteVCS converts a short-form VCS request into the
// "git+ssh://host/group/repo.git@rev" form understood by the installer.
// Requests that are not in the short form are returned unchanged. A short
// form request without a revision is rejected.
func RewriteVCS(request string) (string, error) {
	m := vcsShortRe.FindStringSubmatch(request)
	if m == nil {
		return request, nil
	}
	if m[3] == "" {
		return "", errors.New(errors.ErrCodeInvalidRequest,
			"VCS request %q must specify a revision (e.g. %s@1.0.0)", request, request)
	}
	return fmt.Sprintf("git+ssh://%s/%s@%s", m[1], m[2], m[3]), nil
}

// ParseExtras returns the sorted, de-duplicated extras of a request such as
// "foo[test,dev]". Empty entries are dropped.
func ParseExtras(request string) []string {
	m := extrasRe.FindStringSubmatch(request)
	if m == nil {
		return nil
	}

	seen := make(map[string]bool)
	var extras []string
	for _, extra := range strings.Split(m[1], ",") {
		extra = strings.TrimSpace(extra)
		if extra == "" || seen[extra] {
			continue
		}
		seen[extra] = true
		extras = append(extras, extra)
	}
	sort.Strings(extras)
	return extras
}

// WithExtras formats "name[extra1,extra2]", or name alone without extras.
func WithExtras(name string, extras []string) string {
	if len(extras) == 0 {
		return name
	}
	return fmt.Sprintf("%s[%s]", name, strings.Join(extras, ","))
}
