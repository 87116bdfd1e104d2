// Package gateway provides a gateway to GitHub, abstracting away the REST
// and GraphQL clients and the HTML listing pages behind one shared HTTP client.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"

	"github.com/naka-gawa/github-opened/internal/domain"
)

const (
	DefaultWebURL = "https://github.com"
	DefaultAPIURL = "https://api.github.com/"

	userAgent = "github-opened"
)

// Config locates the GitHub endpoints and carries the credential.
type Config struct {
	Token  string
	WebURL string
	APIURL string
	// GraphQLURL overrides the GraphQL endpoint; empty derives it from APIURL.
	GraphQLURL string
}

// RepoSource defines the behavior of a gateway for listing a user's repositories.
type RepoSource interface {
	FetchUserReposPage(ctx context.Context, user string, page, perPage int) ([]domain.RepoSummary, error)
	FetchPullRequestRepos(ctx context.Context, user string) ([]domain.RepoRef, error)
}

// PageFetcher defines the behavior of a gateway for downloading listing pages.
type PageFetcher interface {
	ListingURL(repo domain.RepoRef, kind domain.ListingKind) string
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// GitHubGateway fetches repository listings from the API and listing pages from the web site.
type GitHubGateway struct {
	httpClient    *http.Client
	restClient    *github.Client
	graphqlClient *githubv4.Client
	webURL        string
	logger        *log.Logger
}

// userRepositoriesQuery lists a user's repositories with their open pull request count.
type userRepositoriesQuery struct {
	User struct {
		Repositories struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				Name  string
				Owner struct {
					Login string
				}
				PullRequests struct {
					TotalCount int
				} `graphql:"pullRequests(states: OPEN)"`
			}
		} `graphql:"repositories(first: 100, after: $cursor, ownerAffiliations: OWNER)"`
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// Every request it sends is counted by counter.
func NewGitHubGateway(cfg Config, counter *domain.RequestCounter, logger *log.Logger) (*GitHubGateway, error) {
	httpClient, err := NewHTTPClient(cfg.Token, counter, logger)
	if err != nil {
		return nil, err
	}
	return newGitHubGateway(httpClient, cfg, logger)
}

func newGitHubGateway(httpClient *http.Client, cfg Config, logger *log.Logger) (*GitHubGateway, error) {
	webURL := strings.TrimSuffix(cfg.WebURL, "/")
	if webURL == "" {
		webURL = DefaultWebURL
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API URL %q: %w", apiURL, err)
	}

	restClient := github.NewClient(httpClient)
	restClient.BaseURL = baseURL
	restClient.UserAgent = userAgent

	graphqlURL := cfg.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = GraphQLURL(apiURL)
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	graphqlHTTP := &http.Client{Transport: &statusTransport{base: transport}, Timeout: httpClient.Timeout}
	graphqlClient := githubv4.NewEnterpriseClient(graphqlURL, graphqlHTTP)

	return &GitHubGateway{
		httpClient:    httpClient,
		restClient:    restClient,
		graphqlClient: graphqlClient,
		webURL:        webURL,
		logger:        logger,
	}, nil
}

// GraphQLURL derives the GraphQL endpoint from a REST base URL:
// https://api.github.com/ serves /graphql, and an Enterprise server's
// https://host/api/v3/ serves https://host/api/graphql.
func GraphQLURL(apiURL string) string {
	base := strings.TrimSuffix(apiURL, "/")
	base = strings.TrimSuffix(base, "/v3")
	return base + "/graphql"
}

// FetchUserReposPage returns one page of the repositories owned by user.
func (g *GitHubGateway) FetchUserReposPage(ctx context.Context, user string, page, perPage int) ([]domain.RepoSummary, error) {
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	repos, resp, err := g.restClient.Repositories.ListByUser(ctx, user, opts)
	if err != nil {
		return nil, wrapResponseError(resp, err, fmt.Sprintf("failed to list repositories of %s", user))
	}

	summaries := make([]domain.RepoSummary, 0, len(repos))
	for _, repo := range repos {
		ref, err := domain.ParseRepoRef(repo.GetFullName())
		if err != nil {
			ref = domain.RepoRef{Owner: repo.GetOwner().GetLogin(), Name: repo.GetName()}
		}
		summaries = append(summaries, domain.RepoSummary{Ref: ref, OpenIssues: repo.GetOpenIssuesCount()})
	}
	g.logger.Printf("  Fetched page %d of %s's repositories (%d entries)", page, user, len(summaries))
	return summaries, nil
}

// FetchPullRequestRepos returns the repositories owned by user that have at
// least one open pull request. It needs an authenticated client.
func (g *GitHubGateway) FetchPullRequestRepos(ctx context.Context, user string) ([]domain.RepoRef, error) {
	variables := map[string]interface{}{
		"login":  githubv4.String(user),
		"cursor": (*githubv4.String)(nil),
	}

	var refs []domain.RepoRef
	for {
		var q userRepositoriesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for %s's pull requests: %w", user, err)
		}
		for _, node := range q.User.Repositories.Nodes {
			if node.PullRequests.TotalCount > 0 {
				refs = append(refs, domain.RepoRef{Owner: node.Owner.Login, Name: node.Name})
			}
		}
		if !q.User.Repositories.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.User.Repositories.PageInfo.EndCursor)
		g.logger.Printf("  Fetching next page of %s's repositories with pull requests...", user)
	}
	return refs, nil
}

// ListingURL returns the first listing page of kind for repo.
func (g *GitHubGateway) ListingURL(repo domain.RepoRef, kind domain.ListingKind) string {
	return fmt.Sprintf("%s/%s/%s/%s", g.webURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name), kind)
}

// FetchPage downloads one HTML listing page.
func (g *GitHubGateway) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: pageURL}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return body, nil
}

// wrapResponseError turns a go-github error into an *APIError when an HTTP
// response was received, and into a plain wrapped error otherwise.
func wrapResponseError(resp *github.Response, err error, msg string) error {
	if resp == nil || resp.Response == nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	reqURL := ""
	if resp.Request != nil {
		reqURL = resp.Request.URL.String()
	}
	return fmt.Errorf("%s: %w", msg, &APIError{StatusCode: resp.StatusCode, URL: reqURL, Err: err})
}
