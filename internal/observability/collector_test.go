package observability

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionCollectorSummary(t *testing.T) {
	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	c := NewSessionCollector()
	c.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
	c.m.StartTime = start

	c.RecordRequest(RequestMetrics{Method: "GET", Path: "/projects/p-1", StatusCode: 503, Duration: 100 * time.Millisecond, Err: errors.New("gateway")})
	c.RecordRetry()
	c.RecordRequest(RequestMetrics{Method: "GET", Path: "/projects/p-1", StatusCode: 200, Duration: 50 * time.Millisecond})

	m := c.Summary()
	assert.Equal(t, 2, m.Requests)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 1, m.Retries)
	assert.Equal(t, 150*time.Millisecond, m.TotalLatency)
	assert.Equal(t, "1.5s | 2 requests | 1 retry | 1 failed", m.String())
}

func TestSessionMetricsStringPlurals(t *testing.T) {
	m := SessionMetrics{Requests: 1, Retries: 2}
	assert.Equal(t, "0s | 1 request | 2 retries", m.String())
	assert.Equal(t, "0s | 0 requests", SessionMetrics{}.String())
}

func TestSessionCollectorConcurrent(t *testing.T) {
	c := NewSessionCollector()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordRequest(RequestMetrics{Duration: time.Millisecond})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Summary().Requests)
}
