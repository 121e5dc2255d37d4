// Package availability resolves which members are free in a time window.
//
// The server classifies members; this package only caches its answer per
// window and makes sure a late answer for an old window is never presented
// as the answer for the current one.
package availability

import (
	"context"
	"fmt"
	"sync"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/models"
)

// Fetcher is the remote availability query.
type Fetcher interface {
	Availability(ctx context.Context, q api.AvailabilityQuery) (models.Availability, error)
}

// UpdatedMsg reports that the fetch for Window finished. Current is false
// when another window was selected while the fetch was in flight.
type UpdatedMsg struct {
	Window  models.Window
	Current bool
	Err     error
}

// View is what callers render for the current window. Members is empty
// until the current window's own response has arrived.
type View struct {
	Window  models.Window
	Members []models.AvailableMember
	Counts  models.AvailabilityCounts
	Loading bool
	Err     error
}

// Resolver caches availability per window in a keyed pool. Selecting a
// window makes it current and invalidates the previously current one.
type Resolver struct {
	fetcher          Fetcher
	companyID        string
	excludeProjectID string

	pools *data.KeyedPool[models.Window, models.Availability]

	mu         sync.RWMutex
	current    models.Window
	hasCurrent bool
	// selection counts Select calls that changed the window, so a command
	// can tell whether its window is still the one the caller is looking at.
	selection uint64
}

// Option configures a Resolver.
type Option func(*Resolver)

// ExcludeProject leaves the given project's own bookings out of conflicts,
// used when editing an existing project.
func ExcludeProject(projectID string) Option {
	return func(r *Resolver) { r.excludeProjectID = projectID }
}

// NewResolver creates a Resolver for one company.
func NewResolver(fetcher Fetcher, companyID string, opts ...Option) *Resolver {
	r := &Resolver{fetcher: fetcher, companyID: companyID}
	for _, opt := range opts {
		opt(r)
	}
	r.pools = data.NewKeyedPool(func(w models.Window) *data.Pool[models.Availability] {
		return data.NewPool("availability:"+w.String(), data.PoolConfig{},
			func(ctx context.Context) (models.Availability, error) {
				return r.fetcher.Availability(ctx, api.WindowQuery(r.companyID, w, r.excludeProjectID))
			})
	})
	return r
}

// Pools exposes the window pools so a realm can own their lifetime.
func (r *Resolver) Pools() data.Pooler { return r.pools }

// Select makes w the current window and returns the command that fetches
// it. The command is nil when w is already fresh or its fetch is already
// in flight. An invalid window is not selected and yields an error Msg.
func (r *Resolver) Select(ctx context.Context, w models.Window) data.Cmd {
	if err := w.Validate(); err != nil {
		return func() data.Msg { return UpdatedMsg{Window: w, Err: fmt.Errorf("availability: %w", err)} }
	}

	r.mu.Lock()
	if r.hasCurrent && r.current != w {
		r.leave(r.current)
	}
	if !r.hasCurrent || r.current != w {
		r.selection++
	}
	r.current = w
	r.hasCurrent = true
	r.mu.Unlock()

	fetch := r.pools.Get(w).FetchIfStale(ctx)
	if fetch == nil {
		return nil
	}
	return func() data.Msg {
		msg := fetch()
		if msg == nil {
			// The pool was cleared while fetching, either because the
			// window was left or because the realm was torn down.
			if r.isCurrent(w) {
				return nil
			}
			return UpdatedMsg{Window: w}
		}
		e := r.pools.Get(w).Get()
		return UpdatedMsg{Window: w, Current: r.isCurrent(w), Err: e.Err}
	}
}

// leave retires the data of a window that is no longer current. A fetch
// still in flight is orphaned so its answer never lands as fresh.
func (r *Resolver) leave(w models.Window) {
	p := r.pools.Get(w)
	if p.Fetching() {
		p.Clear()
		return
	}
	p.Invalidate()
}

// Refresh forces a refetch of the current window.
func (r *Resolver) Refresh(ctx context.Context) data.Cmd {
	w, ok := r.Window()
	if !ok {
		return nil
	}
	r.pools.Get(w).Invalidate()
	return r.Select(ctx, w)
}

// Window returns the current window.
func (r *Resolver) Window() (models.Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.hasCurrent
}

// Selection returns how many times the current window has changed.
func (r *Resolver) Selection() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selection
}

func (r *Resolver) isCurrent(w models.Window) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasCurrent && r.current == w
}

// Current returns the view of the current window. Data belonging to any
// other window is never returned, and stale data for this window is
// withheld until its refetch resolves.
func (r *Resolver) Current() View {
	w, ok := r.Window()
	if !ok {
		return View{}
	}
	e := r.pools.Get(w).Get()
	v := View{Window: w, Err: e.Err}
	switch {
	case e.Fresh():
		v.Members = e.Data.Members
		v.Counts = e.Data.Counts
	case e.State == data.StateError:
	default:
		v.Loading = true
	}
	return v
}

// Member returns a member from the current window's fresh data.
func (r *Resolver) Member(memberID string) (models.AvailableMember, bool) {
	for _, m := range r.Current().Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return models.AvailableMember{}, false
}

// HasConflicts reports whether the member is unavailable in the current
// window.
func (r *Resolver) HasConflicts(memberID string) bool {
	m, ok := r.Member(memberID)
	return ok && m.AvailabilityStatus == models.Unavailable
}

// IsPartiallyAvailable reports whether the member is selectable but has
// conflicts in the current window.
func (r *Resolver) IsPartiallyAvailable(memberID string) bool {
	m, ok := r.Member(memberID)
	return ok && m.AvailabilityStatus == models.PartiallyAvailable
}

// Load selects w and waits for its data. It is the blocking form of
// Select and Current for callers without a message loop.
func (r *Resolver) Load(ctx context.Context, w models.Window) (View, error) {
	msg := data.Run(r.Select(ctx, w))
	if m, ok := msg.(UpdatedMsg); ok && m.Err != nil {
		return View{Window: w, Err: m.Err}, m.Err
	}
	v := r.Current()
	return v, v.Err
}

// FetchRange checks availability across several days in one query. The
// result is not cached.
func (r *Resolver) FetchRange(ctx context.Context, startDate, endDate string, start, end models.Minutes) (models.Availability, error) {
	first := models.Window{Date: startDate, Start: start, End: end}
	if err := first.Validate(); err != nil {
		return models.Availability{}, err
	}
	last := models.Window{Date: endDate, Start: start, End: end}
	if err := last.Validate(); err != nil {
		return models.Availability{}, err
	}
	if endDate < startDate {
		return models.Availability{}, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	q := api.WindowQuery(r.companyID, first, r.excludeProjectID)
	q.Date = ""
	q.StartDate = startDate
	q.EndDate = endDate
	return r.fetcher.Availability(ctx, q)
}
