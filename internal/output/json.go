package output

import (
	"encoding/json"
	"io"

	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/report"
)

// Document captures the single-document JSON output schema.
type Document struct {
	Profile  string               `json:"profile"`
	Cases    []discovery.TestCase `json:"cases,omitempty"`
	Outcomes []report.CaseOutcome `json:"outcomes,omitempty"`
	Summary  report.Summary       `json:"summary"`
	Warnings []string             `json:"warnings,omitempty"`
}

// JSONRenderer emits one indented JSON document.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Render encodes the document as JSON.
func (j *JSONRenderer) Render(doc Document) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// JSONLRenderer emits one record per case followed by a summary record,
// suitable for line-oriented consumers.
type JSONLRenderer struct {
	out io.Writer
}

// NewJSONL creates a JSONL renderer writing to out.
func NewJSONL(out io.Writer) *JSONLRenderer {
	return &JSONLRenderer{out: out}
}

type jsonlRecord struct {
	Type string `json:"type"`
	*report.CaseOutcome
	Summary *report.Summary `json:"summary,omitempty"`
}

// Render writes each outcome on its own line and ends with the summary.
func (j *JSONLRenderer) Render(outcomes []report.CaseOutcome, summary report.Summary) error {
	enc := json.NewEncoder(j.out)
	for i := range outcomes {
		if err := enc.Encode(jsonlRecord{Type: "case", CaseOutcome: &outcomes[i]}); err != nil {
			return err
		}
	}
	return enc.Encode(jsonlRecord{Type: "summary", Summary: &summary})
}
