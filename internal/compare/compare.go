package compare

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sycomp/sytest/internal/report"
)

// Verdict is the comparator's judgment for one case.
type Verdict struct {
	State      report.State
	Diagnostic string
}

// Rule judges whether a case's actual output is equivalent to its expected
// output. Rules are selected per profile and may be overridden per case.
type Rule interface {
	Name() string
	// Compare receives the actual artifact path and the expected (or
	// reference) artifact path. An empty expected path means no expected
	// artifact exists; rules that need one must return Skipped, not Fail.
	Compare(ctx context.Context, actual, expected string) Verdict
}

func pass() Verdict {
	return Verdict{State: report.StatePass}
}

func fail(format string, args ...any) Verdict {
	return Verdict{State: report.StateFail, Diagnostic: fmt.Sprintf(format, args...)}
}

func skipped(format string, args ...any) Verdict {
	return Verdict{State: report.StateSkipped, Diagnostic: fmt.Sprintf(format, args...)}
}

func errored(format string, args ...any) Verdict {
	return Verdict{State: report.StateError, Diagnostic: fmt.Sprintf(format, args...)}
}

// ExactText compares artifacts byte for byte after normalizing line endings.
type ExactText struct{}

// Name identifies the rule in reports and manifests.
func (ExactText) Name() string { return "exact" }

// Compare reads both artifacts and reports the first differing line.
func (ExactText) Compare(_ context.Context, actual, expected string) Verdict {
	if expected == "" {
		return skipped("no expected artifact to compare against")
	}

	actualText, err := readNormalized(actual)
	if err != nil {
		return errored("read actual artifact: %v", err)
	}
	expectedText, err := readNormalized(expected)
	if err != nil {
		return errored("read expected artifact: %v", err)
	}
	if actualText == expectedText {
		return pass()
	}

	line, got, want := firstDiff(actualText, expectedText)
	return fail("line %d: got %q, want %q", line, got, want)
}

// Tolerance compares artifacts line-wise, allowing numeric fields to differ
// within epsilon. Non-numeric fields must match exactly.
type Tolerance struct {
	Epsilon float64
}

// Name identifies the rule in reports and manifests.
func (Tolerance) Name() string { return "numeric" }

// Compare judges the artifacts field by field.
func (r Tolerance) Compare(_ context.Context, actual, expected string) Verdict {
	if expected == "" {
		return skipped("no expected artifact to compare against")
	}

	actualText, err := readNormalized(actual)
	if err != nil {
		return errored("read actual artifact: %v", err)
	}
	expectedText, err := readNormalized(expected)
	if err != nil {
		return errored("read expected artifact: %v", err)
	}

	actualLines := splitLines(actualText)
	expectedLines := splitLines(expectedText)
	if len(actualLines) != len(expectedLines) {
		return fail("got %d lines, want %d", len(actualLines), len(expectedLines))
	}

	for i := range expectedLines {
		gotFields := strings.Fields(actualLines[i])
		wantFields := strings.Fields(expectedLines[i])
		if len(gotFields) != len(wantFields) {
			return fail("line %d: got %q, want %q", i+1, actualLines[i], expectedLines[i])
		}
		for j := range wantFields {
			if !fieldsEqual(gotFields[j], wantFields[j], r.Epsilon) {
				return fail("line %d: got %q, want %q (epsilon %g)", i+1, gotFields[j], wantFields[j], r.Epsilon)
			}
		}
	}
	return pass()
}

func fieldsEqual(got, want string, epsilon float64) bool {
	if got == want {
		return true
	}
	gotNum, gotErr := strconv.ParseFloat(got, 64)
	wantNum, wantErr := strconv.ParseFloat(want, 64)
	if gotErr != nil || wantErr != nil {
		return false
	}
	return math.Abs(gotNum-wantNum) <= epsilon
}

func readNormalized(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return normalize(string(data)), nil
}

// normalize converts CRLF to LF and drops one trailing newline so that
// "a\nb" and "a\nb\n" judge equal.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSuffix(s, "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// firstDiff returns the 1-based line number of the first difference along
// with both fragments.
func firstDiff(actual, expected string) (int, string, string) {
	actualLines := splitLines(actual)
	expectedLines := splitLines(expected)
	max := len(actualLines)
	if len(expectedLines) > max {
		max = len(expectedLines)
	}
	for i := 0; i < max; i++ {
		got := lineAt(actualLines, i)
		want := lineAt(expectedLines, i)
		if got != want {
			return i + 1, got, want
		}
	}
	return 0, "", ""
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return "<missing>"
}
