package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/usecase"
)

const maxTitleWidth = 60

// WriteTable prints one table per non-empty list followed by a summary line.
func WriteTable(w io.Writer, r *usecase.Report, useColor bool) error {
	bold := fmt.Sprint
	if useColor {
		bold = color.New(color.Bold).SprintFunc()
	}

	if len(r.Pulls) > 0 {
		if _, err := fmt.Fprintln(w, bold("Opened pull requests")); err != nil {
			return err
		}
		if err := writeRecords(w, r.Pulls, useColor); err != nil {
			return err
		}
	}
	if len(r.Issues) > 0 {
		if _, err := fmt.Fprintln(w, bold("Opened issues")); err != nil {
			return err
		}
		if err := writeRecords(w, r.Issues, useColor); err != nil {
			return err
		}
	}

	s := Summarize(r)
	_, err := fmt.Fprintf(w, "Took %.1f seconds to do %d web requests, obtain %d opened pull request(s) and %d opened issue(s). Median age: %.1f / %.1f days.\n",
		s.ElapsedSeconds, s.Requests, s.Pulls, s.Issues, s.MedianPullAgeDays, s.MedianIssueAgeDays)
	return err
}

func writeRecords(w io.Writer, records []domain.Record, useColor bool) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Repository", "#", "Title", "Opened by", "Since", "Labels"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	muted := fmt.Sprint
	if useColor {
		muted = color.New(color.FgHiBlack).SprintFunc()
	}

	var data [][]string
	for _, rec := range records {
		labels := make([]string, 0, len(rec.Labels))
		for _, l := range rec.Labels {
			labels = append(labels, l.Text)
		}
		data = append(data, []string{
			rec.Owner + "/" + rec.Repo,
			fmt.Sprintf("%d", rec.Number),
			truncate(rec.Title, maxTitleWidth),
			rec.Author,
			muted(FormatAge(rec.Age)),
			strings.Join(labels, ", "),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
