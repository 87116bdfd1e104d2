package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/github-opened/internal/domain"
)

// errResend is carried by the *APIError returned when a request would go out twice.
var errResend = errors.New("request already sent once, not resending")

// countingTransport increments a run-scoped counter for every request sent.
type countingTransport struct {
	base    http.RoundTripper
	counter *domain.RequestCounter
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.counter.Inc()
	return t.base.RoundTrip(req)
}

// sentRequests remembers the status each in-flight request got on its one attempt.
type sentRequests struct {
	mu     sync.Mutex
	status map[*http.Request]int
}

// onceTransport sends each request at most once. A repeated attempt of the
// same request fails with the status of the first response.
type onceTransport struct {
	base http.RoundTripper
	sent *sentRequests
}

func (t *onceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.sent.mu.Lock()
	status, seen := t.sent.status[req]
	t.sent.mu.Unlock()
	if seen {
		return nil, &APIError{StatusCode: status, URL: req.URL.String(), Err: errResend}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.sent.mu.Lock()
	t.sent.status[req] = resp.StatusCode
	t.sent.mu.Unlock()
	return resp, nil
}

// forgetTransport drops the bookkeeping of onceTransport once a request is done.
type forgetTransport struct {
	base http.RoundTripper
	sent *sentRequests
}

func (t *forgetTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	defer func() {
		t.sent.mu.Lock()
		delete(t.sent.status, req)
		t.sent.mu.Unlock()
	}()
	return t.base.RoundTrip(req)
}

// statusTransport turns a non-2xx response into an *APIError. It serves the
// GraphQL client, which otherwise reports statuses as plain text.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}
	return resp, nil
}

// NewHTTPClient builds the single client shared by every request of a run.
//
// Requests are counted and sent exactly once. A secondary rate limit is
// detected and logged but never waited out: the 403 or 429 reaches the
// caller. The token, when set, is injected as a bearer credential.
func NewHTTPClient(token string, counter *domain.RequestCounter, logger *log.Logger) (*http.Client, error) {
	sent := &sentRequests{status: make(map[*http.Request]int)}
	var base http.RoundTripper = &onceTransport{
		base: &countingTransport{base: http.DefaultTransport, counter: counter},
		sent: sent,
	}

	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(base,
		github_ratelimit.WithSingleSleepLimit(0, func(cc *github_ratelimit.CallbackContext) {
			until := "unknown"
			if cc.SleepUntil != nil {
				until = cc.SleepUntil.Format(time.RFC3339)
			}
			logger.Printf("  Secondary rate limit hit on %s (lifted at %s), not retrying", cc.Request.URL, until)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	var transport http.RoundTripper = &forgetTransport{base: rateLimitWaiter, sent: sent}
	if token == "" {
		return &http.Client{Transport: transport}, nil
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   transport,
			Source: ts,
		},
	}, nil
}
