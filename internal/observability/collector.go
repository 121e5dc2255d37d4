// Package observability counts the API traffic of one CLI invocation for
// the --stats summary.
package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// RequestMetrics describes one HTTP attempt.
type RequestMetrics struct {
	Method     string
	Path       string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// SessionMetrics aggregates a session's requests.
type SessionMetrics struct {
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Requests     int           `json:"requests"`
	Failed       int           `json:"failed"`
	Retries      int           `json:"retries"`
	TotalLatency time.Duration `json:"total_latency_ns"`
}

// Duration is the wall time between session start and the summary.
func (m SessionMetrics) Duration() time.Duration { return m.EndTime.Sub(m.StartTime) }

// String renders a compact one-liner such as
// "1.2s | 3 requests | 1 retry | 1 failed".
func (m SessionMetrics) String() string {
	parts := []string{m.Duration().Round(time.Millisecond).String()}
	parts = append(parts, count(m.Requests, "request"))
	if m.Retries > 0 {
		parts = append(parts, count(m.Retries, "retry"))
	}
	if m.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.Failed))
	}
	return strings.Join(parts, " | ")
}

func count(n int, word string) string {
	switch {
	case n == 1:
		return "1 " + word
	case strings.HasSuffix(word, "y"):
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	default:
		return fmt.Sprintf("%d %ss", n, word)
	}
}

// SessionCollector accumulates metrics. It is safe for concurrent use and
// keeps counters rather than a growing list.
type SessionCollector struct {
	mu sync.Mutex
	m  SessionMetrics
	// now is replaced in tests.
	now func() time.Time
}

// NewSessionCollector starts a collector clock.
func NewSessionCollector() *SessionCollector {
	c := &SessionCollector{now: time.Now}
	c.m.StartTime = c.now()
	return c
}

// RecordRequest adds one attempt.
func (c *SessionCollector) RecordRequest(r RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Requests++
	c.m.TotalLatency += r.Duration
	if r.Err != nil {
		c.m.Failed++
	}
}

// RecordRetry counts a retry.
func (c *SessionCollector) RecordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Retries++
}

// Summary returns the metrics so far.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.m
	m.EndTime = c.now()
	return m
}
