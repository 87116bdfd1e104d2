package usecase

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/naka-gawa/github-opened/internal/domain"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// mockRepoSource is a mock implementation of the gateway.RepoSource interface.
type mockRepoSource struct {
	mock.Mock
}

func (m *mockRepoSource) FetchUserReposPage(ctx context.Context, user string, page, perPage int) ([]domain.RepoSummary, error) {
	args := m.Called(ctx, user, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepoSummary), args.Error(1)
}

func (m *mockRepoSource) FetchPullRequestRepos(ctx context.Context, user string) ([]domain.RepoRef, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepoRef), args.Error(1)
}

// mockPageFetcher mocks FetchPage; listing URLs are built like the real gateway's.
type mockPageFetcher struct {
	mock.Mock
}

func (m *mockPageFetcher) ListingURL(repo domain.RepoRef, kind domain.ListingKind) string {
	return listingURL(repo, kind)
}

func (m *mockPageFetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func listingURL(repo domain.RepoRef, kind domain.ListingKind) string {
	return fmt.Sprintf("https://github.com/%s/%s/%s", repo.Owner, repo.Name, kind)
}

// summaries builds n active repositories of owner, named prefix-0..n-1.
func summaries(owner, prefix string, n int) []domain.RepoSummary {
	out := make([]domain.RepoSummary, n)
	for i := range out {
		out[i] = domain.RepoSummary{Ref: domain.RepoRef{Owner: owner, Name: fmt.Sprintf("%s-%d", prefix, i)}, OpenIssues: 1}
	}
	return out
}

type testEntry struct {
	id      int
	title   string
	author  string
	daysAgo int
}

// listingHTML renders a listing page of repo with an issues counter and an optional next link.
func listingHTML(repo domain.RepoRef, issues int, next string, entries ...testEntry) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><a href="/%s/%s/issues"><span class="Counter">%d</span></a>`, repo.Owner, repo.Name, issues)
	for _, e := range entries {
		opened := testNow.Add(-time.Duration(e.daysAgo) * 24 * time.Hour).Format(time.RFC3339)
		fmt.Fprintf(&b, `<div id="issue_%d"><a id="issue_%d_link" href="/%s/%s/pull/%d">%s</a>`+
			`<span class="opened-by">opened <relative-time datetime="%s"></relative-time> by <a href="#">%s</a></span></div>`,
			e.id, e.id, repo.Owner, repo.Name, e.id, e.title, opened, e.author)
	}
	if next != "" {
		fmt.Fprintf(&b, `<a class="next_page" href="%s">Next</a>`, next)
	}
	b.WriteString(`</body></html>`)
	return []byte(b.String())
}
