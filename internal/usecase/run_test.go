package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/parser"
)

func newTestRunner(source *mockRepoSource, fetcher *mockPageFetcher, counter *domain.RequestCounter) *Runner {
	resolver := NewResolver(source, false, discardLogger())
	crawler := NewCrawler(fetcher, parser.New(discardLogger()), discardLogger())
	return NewRunner(resolver, NewAggregator(crawler, 2, discardLogger()), counter, discardLogger())
}

func TestRunner_Run_NothingToDo(t *testing.T) {
	source := new(mockRepoSource)
	source.On("FetchUserReposPage", mock.Anything, "alice", 1, 100).Return([]domain.RepoSummary{
		{Ref: domain.RepoRef{Owner: "alice", Name: "quiet"}, OpenIssues: 0},
	}, nil)
	fetcher := new(mockPageFetcher)

	report, err := newTestRunner(source, fetcher, &domain.RequestCounter{}).Run(context.Background(), Options{Users: []string{"alice"}}, domain.NewCrawlContext(testNow, 0))

	require.ErrorIs(t, err, ErrNothingToDo)
	assert.Nil(t, report)
	fetcher.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything)
}

func TestRunner_Run_SortsBothLists(t *testing.T) {
	one := domain.RepoRef{Owner: "alice", Name: "one"}
	two := domain.RepoRef{Owner: "Bob", Name: "two"}
	source := new(mockRepoSource)
	source.On("FetchUserReposPage", mock.Anything, "alice", 1, 100).Return([]domain.RepoSummary{{Ref: one, OpenIssues: 1}}, nil)
	source.On("FetchUserReposPage", mock.Anything, "Bob", 1, 100).Return([]domain.RepoSummary{{Ref: two, OpenIssues: 1}}, nil)

	fetcher := new(mockPageFetcher)
	fetcher.On("FetchPage", mock.Anything, listingURL(one, domain.Pulls)).Return(listingHTML(one, 1, "",
		testEntry{id: 1, title: "one-new", author: "zed", daysAgo: 1},
		testEntry{id: 2, title: "one-old", author: "amy", daysAgo: 5}), nil)
	fetcher.On("FetchPage", mock.Anything, listingURL(two, domain.Pulls)).Return(listingHTML(two, 0, "",
		testEntry{id: 3, title: "two-mid", author: "Max", daysAgo: 3}), nil)
	fetcher.On("FetchPage", mock.Anything, listingURL(one, domain.Issues)).Return(listingHTML(one, 1, "",
		testEntry{id: 4, title: "one-issue", author: "kim", daysAgo: 2}), nil)

	counter := &domain.RequestCounter{}
	counter.Inc()
	opts := Options{Users: []string{"alice", "Bob"}, Sort: domain.SortByAuthor}

	report, err := newTestRunner(source, fetcher, counter).Run(context.Background(), opts, domain.NewCrawlContext(testNow, 4))

	require.NoError(t, err)
	require.False(t, report.Empty())
	var pulls []string
	for _, r := range report.Pulls {
		pulls = append(pulls, r.Title)
	}
	assert.Equal(t, []string{"two-mid", "one-new"}, pulls, "one-old is beyond the cutoff")
	require.Len(t, report.Issues, 1)
	assert.Equal(t, []domain.RepoRef{one, two}, report.Repositories)
	assert.Equal(t, int64(1), report.Requests)
	assert.Equal(t, testNow, report.GeneratedAt)
}

func TestReport_Empty(t *testing.T) {
	assert.True(t, (&Report{}).Empty())
	assert.False(t, (&Report{Issues: []domain.Record{{Title: "x"}}}).Empty())
}
