package availability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/models"
)

// fakeFetcher answers with one member named after the queried window.
type fakeFetcher struct {
	mu      sync.Mutex
	queries []api.AvailabilityQuery
	err     error
	members map[string][]models.AvailableMember
}

func (f *fakeFetcher) Availability(_ context.Context, q api.AvailabilityQuery) (models.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return models.Availability{}, f.err
	}
	key := q.Date
	if q.StartDate != "" {
		key = q.StartDate + ".." + q.EndDate
	}
	if m, ok := f.members[key]; ok {
		return models.Availability{Members: m, Counts: models.AvailabilityCounts{Total: len(m)}}, nil
	}
	return models.Availability{
		Members: []models.AvailableMember{{ID: "for-" + key, AvailabilityStatus: models.FullyAvailable}},
		Counts:  models.AvailabilityCounts{FullyAvailable: 1, Total: 1},
	}, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func window(date string) models.Window {
	return models.Window{Date: date, Start: models.FromHour(9), End: models.FromHour(17)}
}

func TestSelectFetchesAndCaches(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1")

	cmd := r.Select(context.Background(), window("2026-11-02"))
	require.NotNil(t, cmd)
	assert.True(t, r.Current().Loading)
	assert.Empty(t, r.Current().Members)

	msg := cmd().(UpdatedMsg)
	assert.True(t, msg.Current)
	assert.NoError(t, msg.Err)

	v := r.Current()
	assert.False(t, v.Loading)
	require.Len(t, v.Members, 1)
	assert.Equal(t, "for-2026-11-02", v.Members[0].ID)

	// Same window again is served from the pool.
	assert.Nil(t, r.Select(context.Background(), window("2026-11-02")))
	assert.Equal(t, 1, f.calls())
	assert.Equal(t, "c1", f.queries[0].CompanyID)
}

func TestLateResponseNeverBecomesCurrent(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1")
	w1, w2 := window("2026-11-02"), window("2026-11-03")

	cmd1 := r.Select(context.Background(), w1)
	cmd2 := r.Select(context.Background(), w2)
	require.NotNil(t, cmd1)
	require.NotNil(t, cmd2)

	msg2 := cmd2().(UpdatedMsg)
	msg1 := cmd1().(UpdatedMsg)

	assert.True(t, msg2.Current)
	assert.False(t, msg1.Current)

	v := r.Current()
	assert.Equal(t, w2, v.Window)
	require.Len(t, v.Members, 1)
	assert.Equal(t, "for-2026-11-03", v.Members[0].ID)
}

func TestOldWindowResolvingFirstLeavesCurrentLoading(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1")

	cmd1 := r.Select(context.Background(), window("2026-11-02"))
	_ = r.Select(context.Background(), window("2026-11-03"))

	cmd1()

	v := r.Current()
	assert.True(t, v.Loading)
	assert.Empty(t, v.Members, "the previous window's members must not show")
}

func TestHourChangeInvalidatesPreviousWindow(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1")
	w := window("2026-11-02")

	data.Run(r.Select(context.Background(), w))
	later := w
	later.End = models.FromHour(18)
	data.Run(r.Select(context.Background(), later))

	// Returning to the first window refetches instead of reusing it.
	cmd := r.Select(context.Background(), w)
	require.NotNil(t, cmd)
	assert.True(t, r.Current().Loading)
	cmd()
	assert.Equal(t, 3, f.calls())
	assert.Equal(t, uint64(3), r.Selection())
}

func TestLateResponseForLeftWindowIsRefetched(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1")
	w1, w2 := window("2026-11-02"), window("2026-11-03")

	cmd1 := r.Select(context.Background(), w1)
	cmd2 := r.Select(context.Background(), w2)
	require.NotNil(t, cmd1)
	require.NotNil(t, cmd2)

	// W1 answers only after W2 was selected, then W2 answers.
	msg1 := cmd1().(UpdatedMsg)
	assert.False(t, msg1.Current)
	assert.True(t, cmd2().(UpdatedMsg).Current)

	// Going back to W1 must not reuse the late answer.
	cmd := r.Select(context.Background(), w1)
	require.NotNil(t, cmd)
	assert.True(t, r.Current().Loading)
	assert.Empty(t, r.Current().Members)

	assert.True(t, cmd().(UpdatedMsg).Current)
	assert.Equal(t, 3, f.calls())
	v := r.Current()
	require.Len(t, v.Members, 1)
	assert.Equal(t, "for-2026-11-02", v.Members[0].ID)
}

func TestDerivedQueries(t *testing.T) {
	f := &fakeFetcher{members: map[string][]models.AvailableMember{
		"2026-11-02": {
			{ID: "ana", AvailabilityStatus: models.FullyAvailable},
			{ID: "ben", AvailabilityStatus: models.PartiallyAvailable, Conflicts: []models.Conflict{{Type: models.ConflictDateOnly}}},
			{ID: "cy", AvailabilityStatus: models.Unavailable},
		},
	}}
	r := NewResolver(f, "c1")
	_, err := r.Load(context.Background(), window("2026-11-02"))
	require.NoError(t, err)

	assert.False(t, r.HasConflicts("ana"))
	assert.False(t, r.IsPartiallyAvailable("ana"))
	assert.True(t, r.IsPartiallyAvailable("ben"))
	assert.False(t, r.HasConflicts("ben"))
	assert.True(t, r.HasConflicts("cy"))
	assert.False(t, r.HasConflicts("nobody"))
}

func TestFetchErrorSurfacesWithoutMembers(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	r := NewResolver(f, "c1")

	v, err := r.Load(context.Background(), window("2026-11-02"))
	assert.EqualError(t, err, "boom")
	assert.False(t, v.Loading)
	assert.Empty(t, v.Members)
}

func TestSelectRejectsInvalidWindow(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, "c1")
	bad := models.Window{Date: "2026-11-02", Start: models.FromHour(10), End: models.FromHour(9)}

	msg := data.Run(r.Select(context.Background(), bad)).(UpdatedMsg)
	assert.Error(t, msg.Err)
	_, ok := r.Window()
	assert.False(t, ok)
}

func TestExcludeProjectIsSent(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1", ExcludeProject("p7"))
	data.Run(r.Select(context.Background(), window("2026-11-02")))
	assert.Equal(t, "p7", f.queries[0].ExcludeProjectID)
}

func TestFetchRange(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, "c1")

	a, err := r.FetchRange(context.Background(), "2026-11-02", "2026-11-04", models.FromHour(8), models.FromHour(12))
	require.NoError(t, err)
	assert.Equal(t, "for-2026-11-02..2026-11-04", a.Members[0].ID)
	q := f.queries[0]
	assert.Empty(t, q.Date)
	assert.Equal(t, 8, q.StartHour)
	assert.Equal(t, 12, q.EndHour)

	_, err = r.FetchRange(context.Background(), "2026-11-04", "2026-11-02", models.FromHour(8), models.FromHour(12))
	assert.Error(t, err)
}

func TestPoolsClearedByRealmTeardown(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, "c1")
	realm := data.NewRealm("session", context.Background())
	realm.Register("availability", r.Pools())

	data.Run(r.Select(context.Background(), window("2026-11-02")))
	require.NotEmpty(t, r.Current().Members)

	realm.Teardown()
	assert.Empty(t, r.Current().Members)
}
