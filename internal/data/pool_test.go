package data

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGetEmpty(t *testing.T) {
	p := NewPool("test", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	e := p.Get()
	assert.Equal(t, StateEmpty, e.State)
	assert.False(t, e.HasData)
}

func TestPoolFetchSuccess(t *testing.T) {
	p := NewPool("items", PoolConfig{FreshTTL: time.Minute}, func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	})

	cmd := p.Fetch(context.Background())
	require.NotNil(t, cmd)
	assert.True(t, p.Get().Loading())

	msg := cmd()
	assert.Equal(t, PoolUpdatedMsg{Key: "items"}, msg)

	e := p.Get()
	assert.Equal(t, StateFresh, e.State)
	assert.True(t, e.Fresh())
	assert.Equal(t, []string{"a", "b"}, e.Data)
	assert.Equal(t, uint64(1), p.Version())
}

func TestPoolFetchErrorPreservesExistingData(t *testing.T) {
	calls := 0
	p := NewPool("items", PoolConfig{}, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "good", nil
		}
		return "", errors.New("fail")
	})

	Run(p.Fetch(context.Background()))
	assert.Equal(t, "good", p.Get().Data)

	Run(p.Fetch(context.Background()))
	e := p.Get()
	assert.Equal(t, StateError, e.State)
	assert.True(t, e.Usable())
	assert.Equal(t, "good", e.Data)
	assert.EqualError(t, e.Err, "fail")
}

func TestPoolFetchDedup(t *testing.T) {
	var count atomic.Int32
	started := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan struct{})

	p := NewPool("slow", PoolConfig{}, func(ctx context.Context) (int, error) {
		count.Add(1)
		close(started)
		<-proceed
		return 42, nil
	})

	cmd1 := p.Fetch(context.Background())
	require.NotNil(t, cmd1)
	go func() {
		cmd1()
		close(done)
	}()
	<-started

	assert.Nil(t, p.Fetch(context.Background()))
	assert.True(t, p.Fetching())

	close(proceed)
	<-done
	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, 42, p.Get().Data)
}

func TestPoolClearDiscardsInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	p := NewPool("gen", PoolConfig{}, func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	})

	cmd := p.Fetch(context.Background())
	require.NotNil(t, cmd)
	p.Clear()
	close(release)

	assert.Nil(t, cmd())
	e := p.Get()
	assert.False(t, e.HasData)
	assert.Equal(t, StateEmpty, e.State)
	assert.Equal(t, uint64(1), p.Generation())
}

func TestPoolClearDoesNotUnblockNewerFetch(t *testing.T) {
	calls := 0
	p := NewPool("gen", PoolConfig{}, func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	})

	old := p.Fetch(context.Background())
	p.Clear()
	fresh := p.Fetch(context.Background())
	require.NotNil(t, fresh)

	assert.Nil(t, old())
	assert.True(t, p.Fetching(), "old generation must not reset the in-flight flag")

	fresh()
	assert.Equal(t, 2, p.Get().Data)
}

func TestPoolFetchIfStale(t *testing.T) {
	p := NewPool("ttl", PoolConfig{FreshTTL: 50 * time.Millisecond}, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	cmd := p.FetchIfStale(context.Background())
	require.NotNil(t, cmd)
	cmd()

	assert.Nil(t, p.FetchIfStale(context.Background()))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateStale, p.Get().State)
	assert.NotNil(t, p.FetchIfStale(context.Background()))
}

func TestPoolInvalidate(t *testing.T) {
	p := NewPool("inv", PoolConfig{}, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	Run(p.Fetch(context.Background()))
	assert.Equal(t, StateFresh, p.Get().State)

	p.Invalidate()
	assert.Equal(t, StateStale, p.Get().State)
	assert.NotNil(t, p.FetchIfStale(context.Background()))
}

func TestPoolSet(t *testing.T) {
	p := NewPool[string]("direct", PoolConfig{}, nil)
	p.Set("prefetched")

	e := p.Get()
	assert.True(t, e.Fresh())
	assert.Equal(t, "prefetched", e.Data)
	assert.Equal(t, uint64(1), p.Version())
}

func TestEntryStateString(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "unknown", EntryState(99).String())
}
