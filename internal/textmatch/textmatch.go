// Package textmatch provides the case-insensitive comparisons used when matching
// free-text job needs against candidate profiles.
package textmatch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold normalises s for comparison: NFKC, Unicode case folding, trimmed spaces.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

// Equal reports whether a and b are equal after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Contains reports whether the folded list holds the folded value.
func Contains(list []string, value string) bool {
	value = Fold(value)
	if value == "" {
		return false
	}
	for _, item := range list {
		if Fold(item) == value {
			return true
		}
	}
	return false
}

// Overlap returns the fraction of required items that match at least one offered
// item, where a match is a substring relation in either direction after folding.
// An empty required list is a vacuous match.
func Overlap(required, offered []string) (float64, []string, []string) {
	folded := make([]string, 0, len(offered))
	for _, o := range offered {
		if f := Fold(o); f != "" {
			folded = append(folded, f)
		}
	}

	var matched, missing []string
	total := 0
	for _, r := range required {
		want := Fold(r)
		if want == "" {
			continue
		}
		total++
		if substringMatch(want, folded) {
			matched = append(matched, r)
		} else {
			missing = append(missing, r)
		}
	}

	if total == 0 {
		return 1, nil, nil
	}
	return float64(len(matched)) / float64(total), matched, missing
}

func substringMatch(want string, offered []string) bool {
	for _, o := range offered {
		if strings.Contains(o, want) || strings.Contains(want, o) {
			return true
		}
	}
	return false
}
