package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/usecase"
)

type jsonReport struct {
	Summary domain.Summary  `json:"summary"`
	Pulls   []domain.Record `json:"pulls"`
	Issues  []domain.Record `json:"issues"`
}

// WriteJSON writes the summary and both record lists as indented JSON.
func WriteJSON(w io.Writer, r *usecase.Report) error {
	out := jsonReport{
		Summary: Summarize(r),
		Pulls:   nonNil(r.Pulls),
		Issues:  nonNil(r.Issues),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	return nil
}

func nonNil(records []domain.Record) []domain.Record {
	if records == nil {
		return []domain.Record{}
	}
	return records
}
