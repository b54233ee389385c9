package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/frederic-klein/yapi/internal/dist"
)

// checkConflict warns when two versions of the same package are promoted in
// one run. The first install is kept; nothing is arbitrated.
func (r *run) checkConflict(record *dist.Record) {
	earlier, ok := r.byKey[record.Key]
	if !ok {
		r.byKey[record.Key] = record
		return
	}
	if earlier.Version == record.Version {
		return
	}
	_, constraint := splitRequirement(record.Request)
	r.logger.Warn("several versions installed",
		"key", record.Key,
		"versions", earlier.Version+", "+record.Version,
		"request", record.Request,
		"compatible", satisfies(earlier.Version, constraint),
	)
}

var requirementRe = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._\-]*)\s*(?:\[[^\]]*\])?\s*(.*)$`)

// splitRequirement splits "name[extras] >= 1, < 2 ; marker" into the name
// and its version constraint.
func splitRequirement(request string) (name, constraint string) {
	m := requirementRe.FindStringSubmatch(request)
	if m == nil {
		return "", ""
	}
	constraint = m[2]
	if idx := strings.Index(constraint, ";"); idx != -1 {
		constraint = constraint[:idx]
	}
	return m[1], strings.TrimSpace(constraint)
}

// satisfies reports whether version matches every comma separated clause of
// constraint. An empty constraint matches anything.
func satisfies(version, constraint string) bool {
	for _, c := range strings.Split(constraint, ",") {
		if !satisfiesOne(version, strings.TrimSpace(c)) {
			return false
		}
	}
	return true
}

func satisfiesOne(have, want string) bool {
	if want == "" {
		return true
	}

	op := ""
	for _, candidate := range []string{"===", "==", "!=", "~=", ">=", "<=", ">", "<"} {
		if strings.HasPrefix(want, candidate) {
			op = candidate
			break
		}
	}
	if op == "" {
		return true
	}
	wantVer := strings.TrimSpace(want[len(op):])

	if prefix, ok := strings.CutSuffix(wantVer, ".*"); ok && (op == "==" || op == "!=") {
		match := have == prefix || strings.HasPrefix(have, prefix+".")
		return match == (op == "==")
	}

	cmp := compareVersions(have, wantVer)
	switch op {
	case "===":
		return have == wantVer
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case "~=":
		// ~= 1.4.5 means >= 1.4.5, == 1.4.*
		parts := releaseSegments(wantVer)
		if len(parts) < 2 || cmp < 0 {
			return false
		}
		haveParts := releaseSegments(have)
		for i := 0; i < len(parts)-1; i++ {
			if i >= len(haveParts) || haveParts[i] != parts[i] {
				return false
			}
		}
		return true
	}
	return true
}

var releaseRe = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)`)

// releaseSegments returns the numeric release part of a version,
// e.g. "1.10.0rc1" -> [1 10 0].
func releaseSegments(v string) []int {
	m := releaseRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return []int{0}
	}
	parts := strings.Split(m[1], ".")
	result := make([]int, len(parts))
	for i, p := range parts {
		result[i], _ = strconv.Atoi(p)
	}
	return result
}

func compareVersions(a, b string) int {
	aParts := releaseSegments(a)
	bParts := releaseSegments(b)

	for i := 0; i < max(len(aParts), len(bParts)); i++ {
		aVal, bVal := 0, 0
		if i < len(aParts) {
			aVal = aParts[i]
		}
		if i < len(bParts) {
			bVal = bParts[i]
		}
		if aVal < bVal {
			return -1
		}
		if aVal > bVal {
			return 1
		}
	}
	return 0
}
