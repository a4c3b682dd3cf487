package pipeline

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sycomp/sytest/internal/compare"
	"github.com/sycomp/sytest/internal/discovery"
)

// StageSpec describes one external-tool invocation within a case's
// pipeline. Argv, Stdin and artifact templates may use placeholders:
//
//	{source}      the case's program under test
//	{input}       the case's stdin file (empty when absent)
//	{expected}    the case's golden output (empty when absent)
//	{work}        the case's private scratch directory
//	{out:<name>}  the artifact produced by an earlier stage
type StageSpec struct {
	// Name identifies the stage in outcomes and artifact references.
	Name string
	// Argv is the full command line; Argv[0] is the executable.
	Argv []string
	// Stdin is the template of a file fed to the tool's stdin.
	Stdin string
	// Output is the name of the artifact file (relative to the work dir)
	// the stage must produce. The pipeline fails the case when the file
	// is absent after a zero exit.
	Output string
	// CaptureStdout names an artifact file to write the captured stdout
	// to, for stages whose interesting product is their output stream.
	CaptureStdout string
	// EchoExit appends the tool's exit code to the captured stdout
	// artifact, matching the golden-output convention where a program's
	// return value trails its printed output.
	EchoExit bool
	// ExitCodeIsResult marks stages whose non-zero exit is the tested
	// program's result rather than a tool failure (e.g. running the
	// compiled program itself). Such stages never short-circuit on exit
	// code alone.
	ExitCodeIsResult bool
	// Timeout bounds the invocation; zero means the runner default.
	Timeout time.Duration
}

// Judgment binds a comparison rule to the artifact pair it judges.
type Judgment struct {
	Rule compare.Rule
	// Actual is the template of the artifact handed to the comparator.
	Actual string
	// Expected is the template of the expected/reference artifact. It may
	// expand to empty, which rules report as Skipped.
	Expected string
}

// JudgeFunc builds the judgment for one case, honoring per-case overrides
// from the manifest.
type JudgeFunc func(tc discovery.TestCase) (Judgment, error)

// Plan is a fixed ordered stage sequence plus the comparison contract for
// one test profile.
type Plan struct {
	// Name is the profile name the plan was built from.
	Name string
	// Stages run strictly in order; a failing stage short-circuits.
	Stages []StageSpec
	// Judge selects the comparison rule and artifacts for a case.
	Judge JudgeFunc
}

var placeholderPattern = regexp.MustCompile(`\{([a-z]+(?::[a-zA-Z0-9._/-]+)?)\}`)

// expand substitutes placeholders from vars, failing on unknown names so a
// stage never silently runs with a malformed argument.
func expand(template string, vars map[string]string) (string, error) {
	var unknown string
	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := vars[key]
		if !ok {
			if unknown == "" {
				unknown = key
			}
			return match
		}
		return value
	})
	if unknown != "" {
		return "", fmt.Errorf("unknown placeholder {%s} in %q", unknown, template)
	}
	return result, nil
}

func expandArgv(argv []string, vars map[string]string) ([]string, error) {
	out := make([]string, len(argv))
	for i, arg := range argv {
		expanded, err := expand(arg, vars)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}
