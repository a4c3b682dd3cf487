package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/sycomp/sytest/internal/report"
)

// WriteResultLog persists the per-case results as an aligned text log next
// to the kept artifacts, one line per case in report order.
func WriteResultLog(path string, outcomes []report.CaseOutcome) error {
	width := maxIDWidth(outcomeIDs(outcomes))

	var b strings.Builder
	for _, outcome := range outcomes {
		fmt.Fprintf(&b, "%-*s \t%s", width, outcome.CaseID, strings.ToUpper(string(outcome.State)))
		if outcome.FailingStage != "" {
			fmt.Fprintf(&b, " (%s)", outcome.FailingStage)
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write result log %q: %w", path, err)
	}
	return nil
}
