// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ListingKind names one of the two listing pages crawled per repository.
type ListingKind string

const (
	Pulls  ListingKind = "pulls"
	Issues ListingKind = "issues"
)

// Tag is a label or milestone attached to a listing entry.
type Tag struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// Record is one open pull request or issue discovered on a listing page.
// It is built once by the parser and never modified afterwards.
type Record struct {
	Owner      string        `json:"owner"`
	Repo       string        `json:"repo"`
	Number     int           `json:"number"`
	Title      string        `json:"title"`
	Link       string        `json:"link"`
	Author     string        `json:"author"`
	OpenedAt   time.Time     `json:"opened_at"`
	Age        time.Duration `json:"age"`
	Labels     []Tag         `json:"labels,omitempty"`
	Milestones []Tag         `json:"milestones,omitempty"`
}

// RepoRef identifies a repository. It is comparable and used as a map key.
type RepoRef struct {
	Owner string
	Name  string
}

// ParseRepoRef parses an "owner/name" string.
func ParseRepoRef(s string) (RepoRef, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepoRef{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return RepoRef{Owner: owner, Name: name}, nil
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// RepoSummary is the subset of a repository descriptor the resolver needs.
type RepoSummary struct {
	Ref        RepoRef
	OpenIssues int
}
