package usecase

import (
	"cmp"
	"context"
	"log"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/gateway"
)

// reposPerPage is the API page size; a shorter page is the last one.
const reposPerPage = 100

// Resolver turns usernames and a static watch list into the set of
// repositories worth crawling.
//
// A repository is kept when the API reports open issues for it. Repositories
// with open pull requests but no open issues are only found when
// includePullOnly is set, which needs an authenticated GraphQL client.
type Resolver struct {
	source          gateway.RepoSource
	includePullOnly bool
	logger          *log.Logger
}

// NewResolver creates a new Resolver instance.
func NewResolver(source gateway.RepoSource, includePullOnly bool, logger *log.Logger) *Resolver {
	return &Resolver{
		source:          source,
		includePullOnly: includePullOnly,
		logger:          logger,
	}
}

// Resolve returns the deduplicated repositories to watch, ordered by owner and name.
//
// Every repository of users is considered. Entries of static whose owner is
// not in users are kept only when a lookup of that owner confirms them active.
// Any API failure aborts the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, users []string, static map[string][]string) ([]domain.RepoRef, error) {
	r.logger.Printf("Usecase: Resolving repositories of %d user(s) and %d configured owner(s)...", len(users), len(static))

	watched := make(map[string]domain.RepoRef)

	resolved, err := r.resolveUsers(ctx, users)
	if err != nil {
		return nil, err
	}
	fullyResolved := make(map[string]bool, len(users))
	for _, user := range users {
		fullyResolved[strings.ToLower(user)] = true
	}
	for _, ref := range resolved {
		watched[repoKey(ref)] = ref
	}

	var remaining []string
	for owner := range static {
		if !fullyResolved[strings.ToLower(owner)] {
			remaining = append(remaining, owner)
		}
	}
	slices.Sort(remaining)

	if len(remaining) > 0 {
		active, err := r.resolveUsers(ctx, remaining)
		if err != nil {
			return nil, err
		}
		activeSet := make(map[string]domain.RepoRef, len(active))
		for _, ref := range active {
			activeSet[repoKey(ref)] = ref
		}
		for _, owner := range remaining {
			for _, name := range static[owner] {
				key := repoKey(domain.RepoRef{Owner: owner, Name: name})
				if ref, ok := activeSet[key]; ok {
					watched[key] = ref
				} else {
					r.logger.Printf("  Skipping %s/%s: no open issues reported", owner, name)
				}
			}
		}
	}

	refs := make([]domain.RepoRef, 0, len(watched))
	for _, ref := range watched {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b domain.RepoRef) int {
		return cmp.Compare(repoKey(a), repoKey(b))
	})
	r.logger.Printf("Usecase: %d repositories to watch.", len(refs))
	return refs, nil
}

// resolveUsers resolves every user concurrently; the first error cancels the others.
func (r *Resolver) resolveUsers(ctx context.Context, users []string) ([]domain.RepoRef, error) {
	results := make([][]domain.RepoRef, len(users))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, user := range users {
		eg.Go(func() error {
			refs, err := r.resolveUser(egCtx, user)
			if err != nil {
				return err
			}
			results[i] = refs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

func (r *Resolver) resolveUser(ctx context.Context, user string) ([]domain.RepoRef, error) {
	var refs []domain.RepoRef
	for page := 1; ; page++ {
		repos, err := r.source.FetchUserReposPage(ctx, user, page, reposPerPage)
		if err != nil {
			return nil, err
		}
		for _, repo := range repos {
			if repo.OpenIssues > 0 {
				refs = append(refs, repo.Ref)
			}
		}
		if len(repos) < reposPerPage {
			break
		}
	}

	if r.includePullOnly {
		withPulls, err := r.source.FetchPullRequestRepos(ctx, user)
		if err != nil {
			return nil, err
		}
		refs = append(refs, withPulls...)
	}
	return refs, nil
}

func repoKey(ref domain.RepoRef) string {
	return strings.ToLower(ref.Owner) + "/" + strings.ToLower(ref.Name)
}
