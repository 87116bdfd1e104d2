package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-opened/internal/config"
	"github.com/naka-gawa/github-opened/internal/domain"
	"github.com/naka-gawa/github-opened/internal/report"
)

type fakeGitHub struct {
	openIssues  int
	pullsStatus int
	pullAge     time.Duration
	token       string
}

// newFakeGitHub serves the REST and GraphQL APIs under /api/ and the pulls
// listing of alice/tool, which holds one pull request and reports no open issues.
// GraphQL answers only requests bearing fake.token.
func newFakeGitHub(t *testing.T, fake fakeGitHub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"name":"tool","full_name":"alice/tool","owner":{"login":"alice"},"open_issues_count":%d}]`, fake.openIssues)
	})
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fake.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":{"user":{"repositories":{"pageInfo":{"hasNextPage":false,"endCursor":"c1"},`+
			`"nodes":[{"name":"tool","owner":{"login":"alice"},"pullRequests":{"totalCount":1}}]}}}}`)
	})
	mux.HandleFunc("/alice/tool/pulls", func(w http.ResponseWriter, r *http.Request) {
		if fake.pullsStatus != 0 && fake.pullsStatus != http.StatusOK {
			w.WriteHeader(fake.pullsStatus)
			return
		}
		opened := time.Now().Add(-fake.pullAge).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, `<html><body><a href="/alice/tool/issues"><span class="Counter">0</span></a>`+
			`<div id="issue_7"><a id="issue_7_link" href="/alice/tool/pull/7">Speed up parser</a>`+
			`<span class="opened-by">opened <relative-time datetime="%s"></relative-time> by <a href="#">bob</a></span></div>`+
			`</body></html>`, opened)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testSettings(server *httptest.Server, output report.Format) *config.Settings {
	return &config.Settings{
		Users:       []string{"alice"},
		Repos:       map[string][]string{},
		Sort:        domain.SortByOpening,
		Output:      output,
		Concurrency: 2,
		WebURL:      server.URL,
		APIURL:      server.URL + "/api/",
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRun_JSON(t *testing.T) {
	server := newFakeGitHub(t, fakeGitHub{openIssues: 1, pullAge: 2 * time.Hour})
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), testSettings(server, report.JSON), discardLogger(), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	var decoded struct {
		Summary domain.Summary   `json:"summary"`
		Pulls   []map[string]any `json:"pulls"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Len(t, decoded.Pulls, 1)
	assert.Equal(t, "Speed up parser", decoded.Pulls[0]["title"])
	assert.Equal(t, "bob", decoded.Pulls[0]["author"])
	assert.Equal(t, 1, decoded.Summary.Repositories)
	assert.Equal(t, int64(2), decoded.Summary.Requests, "one API page and one listing page")
}

func TestRun_PullOnlyDiscoveryUsesTheConfiguredAPI(t *testing.T) {
	server := newFakeGitHub(t, fakeGitHub{openIssues: 0, pullAge: 2 * time.Hour, token: "t0k"})
	s := testSettings(server, report.JSON)
	s.IncludePullOnly = true
	s.Token = "t0k"
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), s, discardLogger(), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	var decoded struct {
		Summary domain.Summary   `json:"summary"`
		Pulls   []map[string]any `json:"pulls"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Len(t, decoded.Pulls, 1)
	assert.Equal(t, "tool", decoded.Pulls[0]["repo"])
	assert.Equal(t, int64(3), decoded.Summary.Requests, "REST page, GraphQL page and listing page")
}

func TestRun_HTMLFile(t *testing.T) {
	server := newFakeGitHub(t, fakeGitHub{openIssues: 1, pullAge: 2 * time.Hour})
	s := testSettings(server, report.HTML)
	s.File = filepath.Join(t.TempDir(), "report.html")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), s, discardLogger(), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "obtain 1 opened pull request(s) and 0 opened issue(s)")
	content, err := os.ReadFile(s.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), server.URL+"/alice/tool/pull/7")
}

func TestRun_Outcomes(t *testing.T) {
	testCases := []struct {
		name           string
		fake           fakeGitHub
		modify         func(s *config.Settings)
		expectedCode   int
		expectedStdout string
		expectedStderr string
	}{
		{
			name:           "no active repository",
			fake:           fakeGitHub{openIssues: 0},
			expectedCode:   0,
			expectedStdout: "nothing to do",
		},
		{
			name:           "everything older than the cutoff",
			fake:           fakeGitHub{openIssues: 1, pullAge: 72 * time.Hour},
			modify:         func(s *config.Settings) { s.Days = 1 },
			expectedCode:   0,
			expectedStdout: "no pull requests and no issues",
		},
		{
			name:           "listing page not found",
			fake:           fakeGitHub{openIssues: 1, pullsStatus: http.StatusNotFound},
			expectedCode:   1,
			expectedStderr: "unknown user or repository?",
		},
		{
			name:           "pull-only discovery with a rejected token",
			fake:           fakeGitHub{openIssues: 0, token: "t0k"},
			modify:         func(s *config.Settings) { s.IncludePullOnly = true; s.Token = "wrong" },
			expectedCode:   1,
			expectedStderr: "bad credentials? check the token",
		},
		{
			name:           "unknown user",
			fake:           fakeGitHub{openIssues: 1},
			modify:         func(s *config.Settings) { s.Users = []string{"nobody"} },
			expectedCode:   1,
			expectedStderr: "GitHub request failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newFakeGitHub(t, tc.fake)
			s := testSettings(server, report.HTML)
			s.File = filepath.Join(t.TempDir(), "report.html")
			if tc.modify != nil {
				tc.modify(s)
			}
			var stdout, stderr bytes.Buffer

			code := run(context.Background(), s, discardLogger(), &stdout, &stderr)

			assert.Equal(t, tc.expectedCode, code)
			if tc.expectedStdout != "" {
				assert.Contains(t, stdout.String(), tc.expectedStdout)
			}
			if tc.expectedStderr != "" {
				assert.Contains(t, stderr.String(), tc.expectedStderr)
			}
			_, err := os.Stat(s.File)
			assert.True(t, os.IsNotExist(err), "no report is written")
		})
	}
}
