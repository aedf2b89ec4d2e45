package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"task-planner/internal/cache"
	"task-planner/internal/kv"
	"task-planner/internal/model"
	"task-planner/internal/planner"
	"task-planner/internal/repository"
)

var testAllocationConfig = AllocationConfig{DefaultDayHours: 4, DefaultTaskHours: 2, HorizonDays: 30}

type fixture struct {
	store    *repository.Store
	kv       *kv.MemoryStore
	calendar *CalendarService
	tasks    *TaskService
	days     *ManualDayService
	alloc    *AllocationService
	owner    *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(":memory:", zerolog.Nop())
	require.NoError(t, err)
	store := repository.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	mem := kv.NewMemoryStore()
	calendar := NewCalendarService(store, cache.New[CalendarPage](mem, time.Hour), zerolog.Nop())

	owner, err := store.Users.UpsertFromTelegram(context.Background(), 100, "Ann", "", "ann")
	require.NoError(t, err)

	return &fixture{
		store:    store,
		kv:       mem,
		calendar: calendar,
		tasks:    NewTaskService(store, calendar, TaskDefaults{Interest: 5, Importance: 5, WorkHours: 2}, zerolog.Nop()),
		days:     NewManualDayService(store, calendar, zerolog.Nop()),
		alloc:    NewAllocationService(store, planner.New(), calendar, testAllocationConfig, zerolog.Nop()),
		owner:    owner,
	}
}

// allocator returns an AllocationService over the fixture's store using a.
func (f *fixture) allocator(a planner.Allocator) *AllocationService {
	return NewAllocationService(f.store, a, f.calendar, testAllocationConfig, zerolog.Nop())
}

func (f *fixture) generation(t *testing.T) uint64 {
	t.Helper()
	gen, err := f.store.Schedule.Generation(context.Background(), f.owner.ID)
	require.NoError(t, err)
	return gen
}

func (f *fixture) cached(t *testing.T, key string) bool {
	t.Helper()
	_, err := f.kv.Get(context.Background(), key)
	if errors.Is(err, kv.ErrNil) {
		return false
	}
	require.NoError(t, err)
	return true
}

type allocatorFunc func(ctx context.Context, method planner.Method, in planner.Input) (planner.Result, error)

func (f allocatorFunc) Allocate(ctx context.Context, method planner.Method, in planner.Input) (planner.Result, error) {
	return f(ctx, method, in)
}

func date(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

// shape strips ids so two runs can be compared.
type shapeDay struct {
	Date  string
	Hours int
	Execs [][2]uint
}

func shape(days []DayView) []shapeDay {
	out := make([]shapeDay, 0, len(days))
	for _, d := range days {
		s := shapeDay{Date: d.Date.Format(dateLayout), Hours: d.WorkHours}
		for _, e := range d.TaskExecutions {
			s.Execs = append(s.Execs, [2]uint{e.TaskID, uint(e.DoingHours)})
		}
		out = append(out, s)
	}
	return out
}
