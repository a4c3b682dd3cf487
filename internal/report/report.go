package report

import "time"

// State is the terminal state of one test case.
type State string

const (
	// StatePass means every stage ran and the comparator accepted the output.
	StatePass State = "pass"
	// StateFail means the pipeline completed but the comparator rejected the output.
	StateFail State = "fail"
	// StateError means a stage could not be launched, exited non-zero, or timed out.
	StateError State = "error"
	// StateSkipped means the case could not be judged (no expected artifact,
	// or the run was cancelled before the case finished).
	StateSkipped State = "skipped"
)

// CaseOutcome captures the terminal result of a single test case. It is
// created once by the pipeline runner and never mutated afterwards.
type CaseOutcome struct {
	CaseID       string        `json:"case_id"`
	State        State         `json:"state"`
	FailingStage string        `json:"failing_stage,omitempty"`
	Diagnostic   string        `json:"diagnostic,omitempty"`
	Duration     time.Duration `json:"-"`
	DurationMS   int64         `json:"duration_ms"`
}

// Summary aggregates outcome counts for a finished run.
type Summary struct {
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Errored    int           `json:"errored"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
}

// Report accumulates case outcomes in discovery order. Record appends,
// Finalize computes the summary; the accumulated state lives only for one
// run and is discarded with the Report value.
type Report struct {
	strictSkips bool
	outcomes    []CaseOutcome
	finalized   bool
	summary     Summary
}

// New creates an empty report. When strictSkips is set, skipped cases count
// against the run's exit code.
func New(strictSkips bool) *Report {
	return &Report{strictSkips: strictSkips}
}

// Record appends an outcome. Outcomes are never retracted once appended.
func (r *Report) Record(outcome CaseOutcome) {
	r.outcomes = append(r.outcomes, outcome)
}

// Outcomes returns the recorded outcomes in insertion order.
func (r *Report) Outcomes() []CaseOutcome {
	return r.outcomes
}

// Finalize computes counts and the run exit code. Repeated calls return the
// summary computed on the first call without rescanning.
func (r *Report) Finalize() Summary {
	if r.finalized {
		return r.summary
	}

	s := Summary{Total: len(r.outcomes)}
	for _, outcome := range r.outcomes {
		switch outcome.State {
		case StatePass:
			s.Passed++
		case StateFail:
			s.Failed++
		case StateError:
			s.Errored++
		case StateSkipped:
			s.Skipped++
		}
		s.Duration += outcome.Duration
	}
	s.DurationMS = s.Duration.Milliseconds()

	if s.Failed > 0 || s.Errored > 0 {
		s.ExitCode = 1
	}
	if r.strictSkips && s.Skipped > 0 {
		s.ExitCode = 1
	}

	r.summary = s
	r.finalized = true
	return s
}
