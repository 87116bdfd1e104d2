// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-opened/internal/domain"
)

// DefaultConcurrency bounds the number of listing crawls in flight.
const DefaultConcurrency = 8

// ErrNothingToDo is returned when no repository is left to crawl.
var ErrNothingToDo = errors.New("nothing to do: no repository with open issues or pull requests")

// Aggregation holds the flattened, unsorted records of both phases.
type Aggregation struct {
	Pulls      []domain.Record
	Issues     []domain.Record
	WithIssues []domain.RepoRef
}

// Aggregator is the use case for crawling many repositories.
// It orchestrates the pulls phase and the dependent issues phase.
type Aggregator struct {
	crawler     *Crawler
	concurrency int
	logger      *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(crawler *Crawler, concurrency int, logger *log.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		crawler:     crawler,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Aggregate crawls the pulls listing of every repository concurrently, then
// the issues listing of exactly those whose pulls page showed open issues.
// The first failure cancels every crawl still running.
func (a *Aggregator) Aggregate(ctx context.Context, repos []domain.RepoRef, cc domain.CrawlContext) (*Aggregation, error) {
	if len(repos) == 0 {
		return nil, ErrNothingToDo
	}

	a.logger.Printf("Usecase: [1/2] Crawling pull requests of %d repositories...", len(repos))
	pulls, err := a.crawlAll(ctx, repos, domain.Pulls, cc)
	if err != nil {
		return nil, err
	}

	agg := &Aggregation{}
	for _, res := range pulls {
		agg.Pulls = append(agg.Pulls, res.Records...)
		if res.HasIssues {
			agg.WithIssues = append(agg.WithIssues, res.Repo)
		}
	}

	a.logger.Printf("Usecase: [2/2] Crawling issues of %d repositories...", len(agg.WithIssues))
	issues, err := a.crawlAll(ctx, agg.WithIssues, domain.Issues, cc)
	if err != nil {
		return nil, err
	}
	for _, res := range issues {
		agg.Issues = append(agg.Issues, res.Records...)
	}

	a.logger.Printf("Usecase: Crawl complete: %d pull request(s), %d issue(s).", len(agg.Pulls), len(agg.Issues))
	return agg, nil
}

// crawlAll runs one crawl per repository. Each task writes only its own slot,
// so results are read after Wait without further locking.
func (a *Aggregator) crawlAll(ctx context.Context, repos []domain.RepoRef, kind domain.ListingKind, cc domain.CrawlContext) ([]*CrawlResult, error) {
	results := make([]*CrawlResult, len(repos))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)
	for i, repo := range repos {
		eg.Go(func() error {
			res, err := a.crawler.Crawl(egCtx, repo, kind, cc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
