package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the ordering of a report.
type SortKey string

const (
	SortByOpening SortKey = "opening"
	SortByRepo    SortKey = "repo"
	SortByAuthor  SortKey = "author"
)

// SortKeys lists every accepted key, in help order.
var SortKeys = []SortKey{SortByOpening, SortByRepo, SortByAuthor}

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(SortKeys, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q (want one of opening, repo, author)", s)
}

// Sort orders records in place.
//
// opening: newest first, then owner, repository, title and link.
// repo: owner and repository (case-insensitive), then oldest first.
// author: author (case-insensitive), then oldest first.
func Sort(records []Record, key SortKey) {
	slices.SortStableFunc(records, compareFunc(key))
}

func compareFunc(key SortKey) func(a, b Record) int {
	switch key {
	case SortByRepo:
		return func(a, b Record) int {
			return cmp.Or(
				cmp.Compare(strings.ToLower(a.Owner), strings.ToLower(b.Owner)),
				cmp.Compare(strings.ToLower(a.Repo), strings.ToLower(b.Repo)),
				a.OpenedAt.Compare(b.OpenedAt),
			)
		}
	case SortByAuthor:
		return func(a, b Record) int {
			return cmp.Or(
				cmp.Compare(strings.ToLower(a.Author), strings.ToLower(b.Author)),
				a.OpenedAt.Compare(b.OpenedAt),
			)
		}
	default:
		return func(a, b Record) int {
			return cmp.Or(
				cmp.Compare(a.Age, b.Age),
				cmp.Compare(a.Owner, b.Owner),
				cmp.Compare(a.Repo, b.Repo),
				cmp.Compare(a.Title, b.Title),
				cmp.Compare(a.Link, b.Link),
			)
		}
	}
}
