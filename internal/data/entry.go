package data

import "time"

// EntryState represents the freshness state of a pool entry.
type EntryState int

const (
	StateEmpty   EntryState = iota // no data yet
	StateFresh                     // data within TTL
	StateStale                     // invalidated or past TTL
	StateLoading                   // fetch in progress (may have stale data)
	StateError                     // fetch failed (may have stale data)
)

func (s EntryState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry holds typed data along with its fetch state.
type Entry[T any] struct {
	Data      T
	State     EntryState
	Err       error
	FetchedAt time.Time
	HasData   bool // distinguishes zero-value T from "never fetched"
}

// Fresh returns true if the entry has data in the Fresh state.
func (e Entry[T]) Fresh() bool {
	return e.HasData && e.State == StateFresh
}

// Usable returns true if the entry has data, regardless of freshness.
func (e Entry[T]) Usable() bool {
	return e.HasData
}

// Loading returns true if a fetch is in progress.
func (e Entry[T]) Loading() bool {
	return e.State == StateLoading
}
