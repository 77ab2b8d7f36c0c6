// Package version compares dotted numeric version strings component-wise.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed dotted numeric version such as 5.10.0.
type Version []uint64

// Parse parses "major.minor.patch..." with any number of components.
// A leading "v" is accepted.
func Parse(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}
	parts := strings.Split(s, ".")
	out := make(Version, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: component %q is not numeric", s, p)
		}
		out = append(out, n)
	}
	return out, nil
}

// Compare returns -1, 0 or 1. Missing trailing components count as zero,
// so 5.0 == 5.0.0.
func Compare(a, b Version) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var x, y uint64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// Newer reports whether remote is strictly greater than local.
func Newer(remote, local string) (bool, error) {
	r, err := Parse(remote)
	if err != nil {
		return false, err
	}
	l, err := Parse(local)
	if err != nil {
		return false, err
	}
	return Compare(r, l) > 0, nil
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}
