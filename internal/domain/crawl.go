package domain

import (
	"sync/atomic"
	"time"
)

// RequestCounter counts network requests made during one run.
// It is safe for concurrent use.
type RequestCounter struct {
	n atomic.Int64
}

// Inc records one request.
func (c *RequestCounter) Inc() {
	c.n.Add(1)
}

// Count returns the number of requests recorded so far.
func (c *RequestCounter) Count() int64 {
	return c.n.Load()
}

// CrawlContext is shared, read-only state for one run.
// Every age is computed against Now so records of a run are comparable.
type CrawlContext struct {
	Now time.Time
	// Cutoff is the maximum age of a reported entry. Zero means unbounded.
	Cutoff time.Duration
}

// NewCrawlContext freezes the current time, truncated to the second,
// and converts a number of days into a cutoff.
func NewCrawlContext(now time.Time, days int) CrawlContext {
	cc := CrawlContext{Now: now.UTC().Truncate(time.Second)}
	if days > 0 {
		cc.Cutoff = time.Duration(days) * 24 * time.Hour
	}
	return cc
}

// Age returns the duration between openedAt and the frozen now.
func (c CrawlContext) Age(openedAt time.Time) time.Duration {
	return c.Now.Sub(openedAt)
}

// RecentEnough reports whether an entry of the given age passes the cutoff.
func (c CrawlContext) RecentEnough(age time.Duration) bool {
	return c.Cutoff <= 0 || age < c.Cutoff
}
