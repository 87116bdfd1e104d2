package usecase

import (
	"context"
	"log"
	"time"

	"github.com/naka-gawa/github-opened/internal/domain"
)

// Options are the inputs of one run.
type Options struct {
	Users []string
	// Repos maps an owner to the repository names to watch.
	Repos map[string][]string
	Sort  domain.SortKey
}

// Report is the sorted outcome of one run.
type Report struct {
	Pulls        []domain.Record
	Issues       []domain.Record
	Repositories []domain.RepoRef
	Requests     int64
	Elapsed      time.Duration
	GeneratedAt  time.Time
	Cutoff       time.Duration
}

// Empty reports whether no pull request and no issue was found.
func (r *Report) Empty() bool {
	return len(r.Pulls) == 0 && len(r.Issues) == 0
}

// Runner resolves the repositories, crawls them and sorts the results.
type Runner struct {
	resolver   *Resolver
	aggregator *Aggregator
	counter    *domain.RequestCounter
	logger     *log.Logger
}

// NewRunner creates a new Runner. counter must be the one the gateway counts with.
func NewRunner(resolver *Resolver, aggregator *Aggregator, counter *domain.RequestCounter, logger *log.Logger) *Runner {
	return &Runner{
		resolver:   resolver,
		aggregator: aggregator,
		counter:    counter,
		logger:     logger,
	}
}

// Run performs a whole run. It returns ErrNothingToDo, without crawling,
// when no repository was resolved.
func (r *Runner) Run(ctx context.Context, opts Options, cc domain.CrawlContext) (*Report, error) {
	start := time.Now()

	repos, err := r.resolver.Resolve(ctx, opts.Users, opts.Repos)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return nil, ErrNothingToDo
	}

	agg, err := r.aggregator.Aggregate(ctx, repos, cc)
	if err != nil {
		return nil, err
	}

	domain.Sort(agg.Pulls, opts.Sort)
	domain.Sort(agg.Issues, opts.Sort)

	return &Report{
		Pulls:        agg.Pulls,
		Issues:       agg.Issues,
		Repositories: repos,
		Requests:     r.counter.Count(),
		Elapsed:      time.Since(start),
		GeneratedAt:  cc.Now,
		Cutoff:       cc.Cutoff,
	}, nil
}
