package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/usecase"
)

//go:embed report.css
var css string

//go:embed report.html.tmpl
var pageTemplate string

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"since": FormatAge,
}).Parse(pageTemplate))

type htmlTable struct {
	Caption string
	Column  string
	Rows    []domain.Record
}

// WriteHTML renders the report as a standalone page. Links are made absolute
// against webURL. Empty lists produce no table.
func WriteHTML(w io.Writer, r *usecase.Report, webURL string) error {
	var tables []htmlTable
	if len(r.Pulls) > 0 {
		tables = append(tables, htmlTable{Caption: "pull requests", Column: "Pull request", Rows: r.Pulls})
	}
	if len(r.Issues) > 0 {
		tables = append(tables, htmlTable{Caption: "issues", Column: "Issue", Rows: r.Issues})
	}

	data := struct {
		CSS     template.CSS
		WebURL  string
		Summary domain.Summary
		Tables  []htmlTable
	}{
		CSS:     template.CSS(css),
		WebURL:  strings.TrimSuffix(webURL, "/"),
		Summary: Summarize(r),
		Tables:  tables,
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
