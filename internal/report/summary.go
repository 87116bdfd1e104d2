// Package report renders the outcome of a run as an HTML page, a terminal
// table or JSON.
package report

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/usecase"
)

// Format selects the renderer.
type Format string

const (
	HTML  Format = "html"
	Table Format = "table"
	JSON  Format = "json"
)

// Formats lists every accepted output format.
var Formats = []Format{HTML, Table, JSON}

// Summarize computes the headline numbers of a report.
func Summarize(r *usecase.Report) domain.Summary {
	pullAges := ageDays(r.Pulls)
	issueAges := ageDays(r.Issues)
	return domain.Summary{
		Repositories:       len(r.Repositories),
		Requests:           r.Requests,
		ElapsedSeconds:     r.Elapsed.Seconds(),
		Pulls:              len(r.Pulls),
		Issues:             len(r.Issues),
		MedianPullAgeDays:  orZero(stats.Median(pullAges)),
		MedianIssueAgeDays: orZero(stats.Median(issueAges)),
		MeanPullAgeDays:    orZero(stats.Mean(pullAges)),
		MeanIssueAgeDays:   orZero(stats.Mean(issueAges)),
	}
}

func ageDays(records []domain.Record) stats.Float64Data {
	data := make(stats.Float64Data, 0, len(records))
	for _, r := range records {
		data = append(data, r.Age.Hours()/24)
	}
	return data
}

// orZero swallows the empty-input error of the stats package.
func orZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}

// FormatAge renders an age as "3 days, 4:05:06".
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	clock := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
