// Package parser extracts open pull requests and issues from GitHub listing pages.
package parser

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/naka-gawa/github-opened/internal/domain"
)

// entryID matches the identifier of a listing row, e.g. "issue_1234".
var entryID = regexp.MustCompile(`^issue_(\d+)$`)

// Page is what one listing page yields.
type Page struct {
	Records []domain.Record
	// HasIssues reports a nonzero counter on the repository's issues tab.
	HasIssues bool
	// Next is the following page, or nil when the crawl of this listing is done.
	Next *url.URL
}

// Parser turns listing markup into records.
type Parser struct {
	logger *log.Logger
}

// New creates a Parser that reports anomalies to logger.
func New(logger *log.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads one listing page of repo fetched from pageURL.
//
// Entries are read in page order, newest first. The first entry older than
// the cutoff ends the listing: it and every later entry are dropped and Next
// is nil even if the page links to a following one.
func (p *Parser) Parse(content []byte, pageURL *url.URL, repo domain.RepoRef, cc domain.CrawlContext) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", pageURL, err)
	}

	page := &Page{HasIssues: p.hasIssues(doc, repo)}

	tooOld := false
	doc.Find(`div[id^="issue_"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		m := entryID.FindStringSubmatch(id)
		if m == nil {
			return true
		}
		record, ok := p.parseEntry(s, m[1], repo, cc)
		if !ok {
			return true
		}
		if !cc.RecentEnough(record.Age) {
			tooOld = true
			return false
		}
		page.Records = append(page.Records, record)
		return true
	})

	if !tooOld {
		page.Next = nextPage(doc, pageURL)
	}
	return page, nil
}

func (p *Parser) parseEntry(s *goquery.Selection, id string, repo domain.RepoRef, cc domain.CrawlContext) (domain.Record, bool) {
	number, _ := strconv.Atoi(id)

	link := s.Find(fmt.Sprintf("a#issue_%s_link", id)).First()
	if link.Length() == 0 {
		link = s.Find("a.Link--primary[href]").First()
	}
	if link.Length() == 0 {
		link = s.Find("a[href]").First()
	}
	href, _ := link.Attr("href")

	openedBy := s.Find(".opened-by")
	stamp, ok := openedBy.Find("relative-time[datetime]").Attr("datetime")
	if !ok {
		stamp, ok = s.Find("relative-time[datetime]").Attr("datetime")
	}
	if !ok {
		p.logger.Printf("  %s: entry #%s has no opening time, skipped", repo, id)
		return domain.Record{}, false
	}
	openedAt, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		p.logger.Printf("  %s: entry #%s has a malformed opening time %q, skipped", repo, id, stamp)
		return domain.Record{}, false
	}

	author := strings.TrimSpace(openedBy.Find("a").First().Text())
	if author == "" {
		p.logger.Printf("  %s: entry #%s has no author", repo, id)
	}

	return domain.Record{
		Owner:      repo.Owner,
		Repo:       repo.Name,
		Number:     number,
		Title:      collapseSpace(link.Text()),
		Link:       href,
		Author:     author,
		OpenedAt:   openedAt.UTC(),
		Age:        cc.Age(openedAt),
		Labels:     tags(s.Find("a.IssueLabel")),
		Milestones: tags(s.Find(`.issue-milestone a, a[href*="/milestone/"]`)),
	}, true
}

// hasIssues reads the counter of the repository's issues tab.
// A missing or unreadable counter counts as no issues.
func (p *Parser) hasIssues(doc *goquery.Document, repo domain.RepoRef) bool {
	tab := doc.Find(fmt.Sprintf(`a[href="/%s/%s/issues"]`, repo.Owner, repo.Name)).First()
	if tab.Length() == 0 {
		tab = doc.Find("#issues-tab").First()
	}
	counter := tab.Find("span.Counter").First()
	if counter.Length() == 0 {
		p.logger.Printf("  %s: no issues counter found, assuming no issues", repo)
		return false
	}

	if title, ok := counter.Attr("title"); ok {
		if n, err := parseCount(title); err == nil {
			return n > 0
		}
	}
	n, err := parseCount(counter.Text())
	if err != nil {
		p.logger.Printf("  %s: unreadable issues counter %q, assuming no issues", repo, counter.Text())
		return false
	}
	return n > 0
}

// parseCount reads counters such as "7", "1,234" or "5k".
func parseCount(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty counter")
	}
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		multiplier, s = 1e3, s[:len(s)-1]
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		multiplier, s = 1e6, s[:len(s)-1]
	}
	if multiplier == 1 {
		return strconv.Atoi(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f * multiplier)), nil
}

func nextPage(doc *goquery.Document, pageURL *url.URL) *url.URL {
	next := doc.Find("a.next_page[href]").First()
	if next.Length() == 0 {
		next = doc.Find(`a[rel="next"][href]`).First()
	}
	href, ok := next.Attr("href")
	if !ok || href == "" {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	return pageURL.ResolveReference(ref)
}

func tags(sel *goquery.Selection) []domain.Tag {
	var out []domain.Tag
	seen := make(map[string]bool)
	sel.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := collapseSpace(a.Text())
		if text == "" || seen[href+"\x00"+text] {
			return
		}
		seen[href+"\x00"+text] = true
		out = append(out, domain.Tag{Text: text, Link: href})
	})
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
