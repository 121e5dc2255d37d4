package data

import (
	"context"
	"sync"
	"time"
)

// PoolUpdatedMsg is returned when a pool's entry changes.
type PoolUpdatedMsg struct {
	Key string
}

// FetchFunc retrieves data for a pool.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// PoolConfig configures a Pool's timing behavior.
type PoolConfig struct {
	FreshTTL time.Duration // how long data is "fresh" (0 = until invalidated)
}

// Pooler is the non-generic interface for pool lifecycle management.
type Pooler interface {
	Invalidate()
	Clear()
}

// Pool is a typed cache with fetch capabilities. It never fetches on its
// own; callers run the Cmd returned by Fetch.
//
// Every Clear bumps the generation. A fetch that started under an older
// generation discards its result, so a cleared pool never receives a late
// response.
type Pool[T any] struct {
	mu         sync.RWMutex
	key        string
	entry      Entry[T]
	config     PoolConfig
	fetchFn    FetchFunc[T]
	version    uint64 // incremented on every data change
	generation uint64 // incremented on Clear, used to discard stale fetches
	fetching   bool
}

// NewPool creates a Pool with the given key, config, and fetch function.
func NewPool[T any](key string, config PoolConfig, fetchFn FetchFunc[T]) *Pool[T] {
	return &Pool[T]{
		key:     key,
		config:  config,
		fetchFn: fetchFn,
	}
}

// Key returns the pool's identifier.
func (p *Pool[T]) Key() string { return p.key }

// Get returns the current entry. Never blocks.
// An entry stored as Fresh is reported Stale once FreshTTL has elapsed.
func (p *Pool[T]) Get() Entry[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e := p.entry
	if e.State == StateFresh && p.config.FreshTTL > 0 && time.Since(e.FetchedAt) >= p.config.FreshTTL {
		e.State = StateStale
	}
	return e
}

// Version returns the current data version.
func (p *Pool[T]) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Generation returns the current generation.
func (p *Pool[T]) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

// Fetching reports whether a fetch is in flight.
func (p *Pool[T]) Fetching() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetching
}

// Fetch returns a Cmd that fetches fresh data and emits PoolUpdatedMsg.
// Concurrent fetches are deduped: returns nil if a fetch is in progress.
func (p *Pool[T]) Fetch(ctx context.Context) Cmd {
	p.mu.Lock()
	if p.fetching {
		p.mu.Unlock()
		return nil
	}
	p.fetching = true
	gen := p.generation
	p.entry.State = StateLoading
	p.mu.Unlock()

	return func() Msg {
		data, err := p.fetchFn(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()

		// Discard result if pool was cleared while fetching.
		if p.generation != gen {
			return nil
		}
		p.fetching = false
		if err != nil {
			p.entry.State = StateError
			p.entry.Err = err
		} else {
			p.entry.Data = data
			p.entry.State = StateFresh
			p.entry.FetchedAt = time.Now()
			p.entry.HasData = true
			p.entry.Err = nil
			p.version++
		}
		return PoolUpdatedMsg{Key: p.key}
	}
}

// FetchIfStale returns a Fetch Cmd if data is stale or empty, nil if fresh
// or already being fetched.
func (p *Pool[T]) FetchIfStale(ctx context.Context) Cmd {
	if p.isFreshOrFetching() {
		return nil
	}
	return p.Fetch(ctx)
}

func (p *Pool[T]) isFreshOrFetching() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.fetching {
		return true
	}
	if !p.entry.HasData || p.entry.State != StateFresh {
		return false
	}
	return p.config.FreshTTL == 0 || time.Since(p.entry.FetchedAt) < p.config.FreshTTL
}

// Invalidate marks current data as stale. Next FetchIfStale will re-fetch.
func (p *Pool[T]) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entry.HasData && p.entry.State == StateFresh {
		p.entry.State = StateStale
	}
}

// Set writes data directly into the pool.
func (p *Pool[T]) Set(data T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry.Data = data
	p.entry.State = StateFresh
	p.entry.FetchedAt = time.Now()
	p.entry.HasData = true
	p.entry.Err = nil
	p.version++
}

// Clear resets the pool to its initial empty state and orphans any
// in-flight fetch.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry = Entry[T]{}
	p.version++
	p.generation++
	p.fetching = false
}
