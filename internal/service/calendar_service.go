package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"task-planner/internal/cache"
	"task-planner/internal/model"
	"task-planner/internal/planner"
	"task-planner/internal/repository"
)

const (
	calendarKeyPrefix          = "planner:calendar:"
	calendarWithTasksKeyPrefix = "planner:calendar_with_tasks:"
	dateLayout                 = "2006-01-02"
)

// CalendarPrefix is the key family of owner's calendar pages without tasks.
// The trailing colon keeps owner 1 from matching owner 12.
func CalendarPrefix(ownerID uint) string {
	return fmt.Sprintf("%s%d:", calendarKeyPrefix, ownerID)
}

// CalendarWithTasksPrefix is the key family of owner's calendar pages with tasks.
func CalendarWithTasksPrefix(ownerID uint) string {
	return fmt.Sprintf("%s%d:", calendarWithTasksKeyPrefix, ownerID)
}

// CalendarKey names one cached page.
func CalendarKey(ownerID uint, start time.Time, withTasks bool) string {
	prefix := CalendarPrefix(ownerID)
	if withTasks {
		prefix = CalendarWithTasksPrefix(ownerID)
	}
	return prefix + start.Format(dateLayout)
}

type TaskView struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Interest   int        `json:"interest"`
	Importance int        `json:"importance"`
	WorkHours  int        `json:"work_hours"`
}

type ExecutionView struct {
	ID         uint      `json:"id"`
	DoingHours int       `json:"doing_hours"`
	TaskID     uint      `json:"task_id"`
	DayID      uint      `json:"day_id"`
	Task       *TaskView `json:"task,omitempty"`
}

type DayView struct {
	ID             uint            `json:"id"`
	Date           time.Time       `json:"date"`
	WorkHours      int             `json:"work_hours"`
	TaskExecutions []ExecutionView `json:"task_executions"`
}

// CalendarPage is the cached value: the full day list starting at one date and
// the schedule generation it was read at.
type CalendarPage struct {
	Generation uint64    `json:"generation"`
	Days       []DayView `json:"days"`
}

type FailedTaskView struct {
	ID     uint      `json:"id"`
	TaskID uint      `json:"task_id"`
	Task   *TaskView `json:"task,omitempty"`
}

// CalendarService serves calendar pages cache-aside and owns their invalidation.
type CalendarService struct {
	store *repository.Store
	pages *cache.Cache[CalendarPage]
	group singleflight.Group
	log   zerolog.Logger
}

func NewCalendarService(store *repository.Store, pages *cache.Cache[CalendarPage], log zerolog.Logger) *CalendarService {
	return &CalendarService{
		store: store,
		pages: pages,
		log:   log.With().Str("component", "calendar").Logger(),
	}
}

// GetCalendar returns ownerID's days on or after start in date order. The
// cached page always holds every day; skipEmpty only filters the returned copy.
func (s *CalendarService) GetCalendar(ctx context.Context, ownerID uint, start time.Time, withTasks, skipEmpty bool) ([]DayView, error) {
	start = planner.DateOf(start)
	key := CalendarKey(ownerID, start, withTasks)

	gen, err := s.store.Schedule.Generation(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	page, ok, err := s.pages.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok && page.Generation >= gen {
		s.log.Debug().Str("key", key).Uint64("generation", page.Generation).Msg("calendar cache hit")
		return filterDays(page.Days, skipEmpty), nil
	}
	if ok {
		s.log.Debug().Str("key", key).
			Uint64("cached_generation", page.Generation).
			Uint64("generation", gen).
			Msg("discarding stale calendar page")
	}

	// Callers share a load only when they saw the same generation, and the
	// load outlives any single caller's cancellation.
	flight := fmt.Sprintf("%s@%d", key, gen)
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(flight, func() (interface{}, error) {
		return s.loadPage(loadCtx, key, ownerID, start, withTasks)
	})
	if err != nil {
		return nil, err
	}
	return filterDays(v.(CalendarPage).Days, skipEmpty), nil
}

// loadPage reads the generation and the days in one transaction so the stamp
// matches the rows, then stores the page.
func (s *CalendarService) loadPage(ctx context.Context, key string, ownerID uint, start time.Time, withTasks bool) (CalendarPage, error) {
	var page CalendarPage
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		gen, err := tx.Schedule.Generation(ctx, ownerID)
		if err != nil {
			return err
		}
		days, err := tx.Schedule.ListDays(ctx, ownerID, start, withTasks)
		if err != nil {
			return err
		}
		page = CalendarPage{Generation: gen, Days: dayViews(days)}
		return nil
	})
	if err != nil {
		return CalendarPage{}, err
	}

	if err := s.pages.Set(ctx, key, page); err != nil {
		return CalendarPage{}, err
	}
	s.log.Debug().Str("key", key).Int("days", len(page.Days)).Msg("calendar page cached")
	return page, nil
}

// ListFailed returns the tasks the last allocation run could not place.
func (s *CalendarService) ListFailed(ctx context.Context, ownerID uint) ([]FailedTaskView, error) {
	rows, err := s.store.Schedule.ListFailed(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]FailedTaskView, 0, len(rows))
	for _, row := range rows {
		out = append(out, FailedTaskView{ID: row.ID, TaskID: row.TaskID, Task: taskView(row.Task)})
	}
	return out, nil
}

// Invalidate drops both calendar key families of ownerID.
func (s *CalendarService) Invalidate(ctx context.Context, ownerID uint) error {
	for _, prefix := range []string{CalendarPrefix(ownerID), CalendarWithTasksPrefix(ownerID)} {
		n, err := s.pages.DeleteByPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Debug().Str("prefix", prefix).Int64("deleted", n).Msg("calendar pages invalidated")
		}
	}
	return nil
}

func filterDays(days []DayView, skipEmpty bool) []DayView {
	out := make([]DayView, 0, len(days))
	for _, d := range days {
		if skipEmpty && len(d.TaskExecutions) == 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

func dayViews(days []model.Day) []DayView {
	out := make([]DayView, 0, len(days))
	for _, d := range days {
		view := DayView{
			ID:             d.ID,
			Date:           planner.DateOf(d.Date),
			WorkHours:      d.WorkHours,
			TaskExecutions: make([]ExecutionView, 0, len(d.TaskExecutions)),
		}
		for _, e := range d.TaskExecutions {
			view.TaskExecutions = append(view.TaskExecutions, ExecutionView{
				ID:         e.ID,
				DoingHours: e.DoingHours,
				TaskID:     e.TaskID,
				DayID:      e.DayID,
				Task:       taskView(e.Task),
			})
		}
		out = append(out, view)
	}
	return out
}

func taskView(t *model.Task) *TaskView {
	if t == nil {
		return nil
	}
	return &TaskView{
		ID:         t.ID,
		Name:       t.Name,
		Deadline:   t.Deadline,
		Interest:   t.Interest,
		Importance: t.Importance,
		WorkHours:  t.WorkHours,
	}
}
