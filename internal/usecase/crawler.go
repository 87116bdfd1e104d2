package usecase

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/gateway"
	"github.com/naka-gawa/github-opened/internal/parser"
)

// CrawlResult is the outcome of crawling one listing of one repository.
type CrawlResult struct {
	Repo    domain.RepoRef
	Kind    domain.ListingKind
	Records []domain.Record
	// HasIssues is the issues counter seen on the last page. Only meaningful for pulls.
	HasIssues bool
	Pages     int
}

// Crawler walks the listing pages of one repository, one page at a time.
type Crawler struct {
	fetcher gateway.PageFetcher
	parser  *parser.Parser
	logger  *log.Logger
}

// NewCrawler creates a new Crawler instance.
func NewCrawler(fetcher gateway.PageFetcher, p *parser.Parser, logger *log.Logger) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		parser:  p,
		logger:  logger,
	}
}

// Crawl fetches and parses the kind listing of repo until the parser reports
// no following page. Pages are fetched strictly in sequence.
func (c *Crawler) Crawl(ctx context.Context, repo domain.RepoRef, kind domain.ListingKind, cc domain.CrawlContext) (*CrawlResult, error) {
	next, err := url.Parse(c.fetcher.ListingURL(repo, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s URL of %s: %w", kind, repo, err)
	}

	result := &CrawlResult{Repo: repo, Kind: kind}
	visited := make(map[string]bool)
	for next != nil {
		pageURL := next.String()
		if visited[pageURL] {
			c.logger.Printf("  %s: %s links back to an already visited page, stopping", repo, pageURL)
			break
		}
		visited[pageURL] = true

		content, err := c.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to crawl %s of %s: %w", kind, repo, err)
		}
		page, err := c.parser.Parse(content, next, repo, cc)
		if err != nil {
			return nil, err
		}

		result.Pages++
		result.Records = append(result.Records, page.Records...)
		result.HasIssues = page.HasIssues
		next = page.Next
		if next != nil {
			c.logger.Printf("  Fetching next page of %s for %s...", kind, repo)
		}
	}
	return result, nil
}
