package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/report"
)

// PrettyRenderer renders run results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderList enumerates discovered cases without running them.
func (p *PrettyRenderer) RenderList(cases []discovery.TestCase) error {
	width := maxIDWidth(caseIDs(cases))
	for _, tc := range cases {
		marks := make([]string, 0, 2)
		if tc.Input != "" {
			marks = append(marks, "stdin")
		}
		if tc.Expected != "" {
			marks = append(marks, "golden")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ",") + "]"
		}
		if _, err := fmt.Fprintf(p.out, "%-*s%s\n", width, tc.ID, suffix); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(p.out, "%d cases\n", len(cases))
	return err
}

// RenderResults shows per-case outcomes with identifiers aligned to the
// widest id, followed by a summary table.
func (p *PrettyRenderer) RenderResults(outcomes []report.CaseOutcome, summary report.Summary) error {
	width := maxIDWidth(outcomeIDs(outcomes))
	for _, outcome := range outcomes {
		line := fmt.Sprintf("%s %-*s %s (%s)", statusGlyph(outcome.State), width, outcome.CaseID,
			strings.ToUpper(string(outcome.State)), formatDuration(outcome.Duration))
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
		if outcome.State == report.StatePass {
			continue
		}
		if outcome.FailingStage != "" {
			if _, err := fmt.Fprintf(p.out, "    stage: %s\n", outcome.FailingStage); err != nil {
				return err
			}
		}
		if outcome.Diagnostic != "" {
			if _, err := fmt.Fprintf(p.out, "%s\n", indent(outcome.Diagnostic, "    ")); err != nil {
				return err
			}
		}
	}

	p.renderSummaryTable(summary)
	return nil
}

func (p *PrettyRenderer) renderSummaryTable(summary report.Summary) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"State", "Cases"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	table.Append([]string{"pass", fmt.Sprintf("%d", summary.Passed)})
	table.Append([]string{"fail", fmt.Sprintf("%d", summary.Failed)})
	table.Append([]string{"error", fmt.Sprintf("%d", summary.Errored)})
	table.Append([]string{"skipped", fmt.Sprintf("%d", summary.Skipped)})
	table.SetFooter([]string{
		fmt.Sprintf("Total %d", summary.Total),
		formatDuration(summary.Duration),
	})
	table.Render()
}

func caseIDs(cases []discovery.TestCase) []string {
	ids := make([]string, len(cases))
	for i, tc := range cases {
		ids[i] = tc.ID
	}
	return ids
}

func outcomeIDs(outcomes []report.CaseOutcome) []string {
	ids := make([]string, len(outcomes))
	for i, outcome := range outcomes {
		ids[i] = outcome.CaseID
	}
	return ids
}

func maxIDWidth(ids []string) int {
	width := 0
	for _, id := range ids {
		if len(id) > width {
			width = len(id)
		}
	}
	return width
}

func statusGlyph(state report.State) string {
	switch state {
	case report.StatePass:
		return "✓"
	case report.StateFail:
		return "✗"
	case report.StateError:
		return "!"
	case report.StateSkipped:
		return "-"
	default:
		return "?"
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
