package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-planner/internal/cache"
	"task-planner/internal/errs"
	"task-planner/internal/kv"
	"task-planner/internal/planner"
)

func TestCalendarKeys(t *testing.T) {
	d := date("2025-01-01")
	assert.Equal(t, "planner:calendar:7:2025-01-01", CalendarKey(7, d, false))
	assert.Equal(t, "planner:calendar_with_tasks:7:2025-01-01", CalendarKey(7, d, true))
	assert.Equal(t, "planner:calendar:7:", CalendarPrefix(7))
	assert.Equal(t, "planner:calendar_with_tasks:7:", CalendarWithTasksPrefix(7))
}

func allocateOne(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	_, err := f.tasks.CreateTask(ctx, f.owner.ID, TaskInput{Name: "a", WorkHours: 2})
	require.NoError(t, err)
	_, err = f.alloc.Allocate(ctx, AllocationRequest{OwnerID: f.owner.ID, Method: "interest", StartDate: datePtr("2025-01-01")})
	require.NoError(t, err)
}

func TestCalendarServesCachedPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	allocateOne(t, f)

	days, err := f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), false, false)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, f.cached(t, CalendarKey(f.owner.ID, date("2025-01-01"), false)))
	assert.False(t, f.cached(t, CalendarKey(f.owner.ID, date("2025-01-01"), true)))

	// Rows change behind the cache without a generation bump.
	require.NoError(t, f.store.Schedule.Wipe(ctx, f.owner.ID))

	days, err = f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), false, false)
	require.NoError(t, err)
	assert.Len(t, days, 1, "served from cache")

	require.NoError(t, f.calendar.Invalidate(ctx, f.owner.ID))
	days, err = f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), false, false)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestCalendarDiscardsStaleGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	allocateOne(t, f)

	_, err := f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), true, false)
	require.NoError(t, err)

	// A commit whose invalidation never reached the cache.
	require.NoError(t, f.store.Schedule.Wipe(ctx, f.owner.ID))
	_, err = f.store.Schedule.BumpGeneration(ctx, f.owner.ID)
	require.NoError(t, err)

	days, err := f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), true, false)
	require.NoError(t, err)
	assert.Empty(t, days)

	page, ok, err := f.calendar.pages.Get(ctx, CalendarKey(f.owner.ID, date("2025-01-01"), true))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.generation(t), page.Generation)
}

func TestCalendarSkipEmptyFiltersAfterCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.CreateTask(ctx, f.owner.ID, TaskInput{Name: "a", WorkHours: 1})
	require.NoError(t, err)
	withEmptyDay := f.allocator(allocatorFunc(func(context.Context, planner.Method, planner.Input) (planner.Result, error) {
		return planner.Result{Days: []planner.Day{
			{Date: date("2025-01-01"), WorkHours: 0},
			{Date: date("2025-01-02"), WorkHours: 4, Schedule: []planner.Assignment{{TaskRef: task.ID, Hours: 1}}},
		}}, nil
	}))
	_, err = withEmptyDay.Allocate(ctx, AllocationRequest{OwnerID: f.owner.ID, Method: "interest", StartDate: datePtr("2025-01-01")})
	require.NoError(t, err)

	all, err := f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), false, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Date.Before(all[1].Date))

	busy, err := f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), false, true)
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.True(t, busy[0].Date.Equal(date("2025-01-02")))

	keys, err := f.kv.Scan(ctx, CalendarPrefix(f.owner.ID)+"*")
	require.NoError(t, err)
	assert.Len(t, keys, 1, "one page serves both callers")
}

func TestCalendarStartDateBound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.tasks.CreateTask(ctx, f.owner.ID, TaskInput{Name: "a", WorkHours: 10})
	require.NoError(t, err)
	_, err = f.alloc.Allocate(ctx, AllocationRequest{OwnerID: f.owner.ID, Method: "interest", StartDate: datePtr("2025-01-01")})
	require.NoError(t, err)

	days, err := f.calendar.GetCalendar(ctx, f.owner.ID, time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC), false, false)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].Date.Equal(date("2025-01-02")))
	assert.True(t, days[1].Date.Equal(date("2025-01-03")))
	assert.True(t, f.cached(t, CalendarKey(f.owner.ID, date("2025-01-02"), false)))
}

func TestCalendarDecodeFailureIsAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key := CalendarKey(f.owner.ID, date("2025-01-01"), false)
	require.NoError(t, f.kv.Set(ctx, key, []byte(`{"days":"nope"}`), time.Hour))

	_, err := f.calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), false, false)
	require.ErrorIs(t, err, errs.ErrCacheDecode)
}

func TestCalendarListFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, err := f.tasks.CreateTask(ctx, f.owner.ID, TaskInput{Name: "late", WorkHours: 3, Deadline: datePtr("2024-12-31")})
	require.NoError(t, err)
	_, err = f.alloc.Allocate(ctx, AllocationRequest{OwnerID: f.owner.ID, Method: "points_allocation", StartDate: datePtr("2025-01-01")})
	require.NoError(t, err)

	failed, err := f.calendar.ListFailed(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, late.ID, failed[0].TaskID)
	require.NotNil(t, failed[0].Task)
	assert.Equal(t, "late", failed[0].Task.Name)
}

// gatedStore holds the first Set until release is closed, then honours the
// caller's context the way a network store would.
type gatedStore struct {
	kv.Store
	armed   atomic.Bool
	gets    atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	g := &gatedStore{
		Store:   kv.NewMemoryStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	g.armed.Store(true)
	return g
}

func (g *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	g.gets.Add(1)
	return g.Store.Get(ctx, key)
}

func (g *gatedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return g.Store.Set(ctx, key, value, ttl)
}

type calendarResult struct {
	days []DayView
	err  error
}

func readCalendar(ctx context.Context, calendar *CalendarService, ownerID uint, start time.Time) <-chan calendarResult {
	out := make(chan calendarResult, 1)
	go func() {
		days, err := calendar.GetCalendar(ctx, ownerID, start, true, false)
		out <- calendarResult{days: days, err: err}
	}()
	return out
}

func TestCalendarReaderAfterCommitDoesNotJoinOlderLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	allocateOne(t, f)

	gated := newGatedStore()
	calendar := NewCalendarService(f.store, cache.New[CalendarPage](gated, time.Hour), zerolog.Nop())
	days := NewManualDayService(f.store, calendar, zerolog.Nop())
	alloc := NewAllocationService(f.store, planner.New(), calendar, testAllocationConfig, zerolog.Nop())
	released := false
	defer func() {
		if !released {
			close(gated.release)
		}
	}()

	first := readCalendar(ctx, calendar, f.owner.ID, date("2025-01-01"))
	<-gated.entered

	// The first load has read its rows and is parked in Set while the
	// schedule moves to the next day.
	_, err := days.SetManualDay(ctx, f.owner.ID, date("2025-01-01"), 0)
	require.NoError(t, err)
	_, err = alloc.Allocate(ctx, AllocationRequest{OwnerID: f.owner.ID, Method: "interest", StartDate: datePtr("2025-01-01")})
	require.NoError(t, err)

	select {
	case r := <-readCalendar(ctx, calendar, f.owner.ID, date("2025-01-01")):
		require.NoError(t, r.err)
		require.NotEmpty(t, r.days)
		assert.Equal(t, "2025-01-02", r.days[0].Date.Format(dateLayout))
	case <-time.After(2 * time.Second):
		t.Fatal("reader waited on a load that started before the commit")
	}

	close(gated.release)
	released = true
	r := <-first
	require.NoError(t, r.err)
	require.NotEmpty(t, r.days)
	assert.Equal(t, "2025-01-01", r.days[0].Date.Format(dateLayout))

	// The late write of the older page is discarded on the next read.
	got, err := calendar.GetCalendar(ctx, f.owner.ID, date("2025-01-01"), true, false)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "2025-01-02", got[0].Date.Format(dateLayout))
}

func TestCalendarSharedLoadSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t)
	allocateOne(t, f)

	gated := newGatedStore()
	calendar := NewCalendarService(f.store, cache.New[CalendarPage](gated, time.Hour), zerolog.Nop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leader := readCalendar(leaderCtx, calendar, f.owner.ID, date("2025-01-01"))
	<-gated.entered

	follower := readCalendar(context.Background(), calendar, f.owner.ID, date("2025-01-01"))
	require.Eventually(t, func() bool { return gated.gets.Load() >= 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(gated.release)

	r := <-follower
	require.NoError(t, r.err)
	require.Len(t, r.days, 1)
	assert.Equal(t, "2025-01-01", r.days[0].Date.Format(dateLayout))

	r = <-leader
	require.NoError(t, r.err)
	_, ok, err := calendar.pages.Get(context.Background(), CalendarKey(f.owner.ID, date("2025-01-01"), true))
	require.NoError(t, err)
	assert.True(t, ok)
}
