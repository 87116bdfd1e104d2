package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)
	now := t2.Add(24 * time.Hour)
	rec := func(owner, repo, author string, openedAt time.Time) Record {
		return Record{Owner: owner, Repo: repo, Author: author, OpenedAt: openedAt, Age: now.Sub(openedAt)}
	}

	testCases := []struct {
		name     string
		key      SortKey
		input    []Record
		expected []Record
	}{
		{
			name:     "repo - owner and name then opening time",
			key:      SortByRepo,
			input:    []Record{rec("b", "x", "", t1), rec("a", "y", "", t2), rec("a", "y", "", t1)},
			expected: []Record{rec("a", "y", "", t1), rec("a", "y", "", t2), rec("b", "x", "", t1)},
		},
		{
			name:     "repo - case-insensitive",
			key:      SortByRepo,
			input:    []Record{rec("beta", "x", "", t1), rec("Alpha", "Z", "", t1), rec("alpha", "y", "", t1)},
			expected: []Record{rec("alpha", "y", "", t1), rec("Alpha", "Z", "", t1), rec("beta", "x", "", t1)},
		},
		{
			name:     "author - case-insensitive then opening time",
			key:      SortByAuthor,
			input:    []Record{rec("o", "r", "bob", t1), rec("o", "r", "Alice", t2), rec("o", "r", "alice", t1)},
			expected: []Record{rec("o", "r", "alice", t1), rec("o", "r", "Alice", t2), rec("o", "r", "bob", t1)},
		},
		{
			name:     "opening - newest first then owner",
			key:      SortByOpening,
			input:    []Record{rec("b", "x", "", t1), rec("b", "x", "", t2), rec("a", "x", "", t1)},
			expected: []Record{rec("b", "x", "", t2), rec("a", "x", "", t1), rec("b", "x", "", t1)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records := append([]Record(nil), tc.input...)
			Sort(records, tc.key)
			assert.Equal(t, tc.expected, records)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey(" Repo ")
	require.NoError(t, err)
	assert.Equal(t, SortByRepo, key)

	_, err = ParseSortKey("stars")
	assert.Error(t, err)
}

func TestParseRepoRef(t *testing.T) {
	ref, err := ParseRepoRef("CheckiO/checkio-task-runner")
	require.NoError(t, err)
	assert.Equal(t, RepoRef{Owner: "CheckiO", Name: "checkio-task-runner"}, ref)
	assert.Equal(t, "CheckiO/checkio-task-runner", ref.String())

	for _, bad := range []string{"", "owner", "/name", "owner/", "a/b/c"} {
		_, err := ParseRepoRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestCrawlContext(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 500, time.UTC)

	cc := NewCrawlContext(now, 7)
	assert.Equal(t, now.Truncate(time.Second), cc.Now)
	assert.Equal(t, 7*24*time.Hour, cc.Cutoff)
	assert.True(t, cc.RecentEnough(7*24*time.Hour-time.Second))
	assert.False(t, cc.RecentEnough(7*24*time.Hour))

	unbounded := NewCrawlContext(now, 0)
	assert.Zero(t, unbounded.Cutoff)
	assert.True(t, unbounded.RecentEnough(1000*24*time.Hour))
}

func TestRequestCounter_Concurrent(t *testing.T) {
	var c RequestCounter
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Count())
}
