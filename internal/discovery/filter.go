package discovery

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled case filter supporting substring and regex matching.
// A filter wrapped in slashes (`/expr/`) is treated as a regular expression;
// anything else matches as a case-insensitive substring.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// CompilePatterns transforms raw filter strings into Pattern values.
func CompilePatterns(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// Match reports whether the pattern matches the supplied case identifier.
func (p Pattern) Match(id string) bool {
	if id == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(id)
	}
	return strings.Contains(strings.ToLower(id), p.lower)
}

// Filter applies only/skip patterns to the case list, preserving order.
func Filter(cases []TestCase, only, skip []Pattern) []TestCase {
	if len(only) == 0 && len(skip) == 0 {
		return cases
	}
	result := make([]TestCase, 0, len(cases))
	for _, tc := range cases {
		if len(only) > 0 && !matchesAny(tc.ID, only) {
			continue
		}
		if matchesAny(tc.ID, skip) {
			continue
		}
		result = append(result, tc)
	}
	return result
}

func matchesAny(id string, patterns []Pattern) bool {
	for _, pattern := range patterns {
		if pattern.Match(id) {
			return true
		}
	}
	return false
}
