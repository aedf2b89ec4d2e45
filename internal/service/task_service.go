package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"task-planner/internal/errs"
	"task-planner/internal/model"
	"task-planner/internal/planner"
	"task-planner/internal/repository"
)

const maxTaskNameLen = 128

// TaskDefaults fill in fields a caller leaves at zero.
type TaskDefaults struct {
	Interest   int
	Importance int
	WorkHours  int
}

// TaskInput represents data required to create or update a task. Zero numeric
// fields take the defaults on create and keep the stored value on update.
type TaskInput struct {
	Name       string
	Deadline   *time.Time
	Interest   int
	Importance int
	WorkHours  int
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store    *repository.Store
	calendar CalendarInvalidator
	defaults TaskDefaults
	log      zerolog.Logger
}

func NewTaskService(store *repository.Store, calendar CalendarInvalidator, defaults TaskDefaults, log zerolog.Logger) *TaskService {
	return &TaskService{
		store:    store,
		calendar: calendar,
		defaults: defaults,
		log:      log.With().Str("component", "tasks").Logger(),
	}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID uint, input TaskInput) (*model.Task, error) {
	task := model.Task{
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(input.Name),
		Deadline:   dateOnly(input.Deadline),
		Interest:   orDefault(input.Interest, s.defaults.Interest),
		Importance: orDefault(input.Importance, s.defaults.Importance),
		WorkHours:  orDefault(input.WorkHours, s.defaults.WorkHours),
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	err := commitCalendarChange(ctx, s.store, s.calendar, s.log, ownerID, func(tx *repository.Store) error {
		return tx.Tasks.Create(ctx, &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID uint) ([]model.Task, error) {
	return s.store.Tasks.ListByOwner(ctx, ownerID)
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	return s.store.Tasks.FindByID(ctx, ownerID, taskID)
}

// UpdateTask applies the non-zero fields of input. A nil Deadline keeps the
// stored deadline; use ClearDeadline to remove it.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID uint, input TaskInput) (*model.Task, error) {
	var task *model.Task
	err := commitCalendarChange(ctx, s.store, s.calendar, s.log, ownerID, func(tx *repository.Store) error {
		t, err := tx.Tasks.FindByID(ctx, ownerID, taskID)
		if err != nil {
			return err
		}
		if name := strings.TrimSpace(input.Name); name != "" {
			t.Name = name
		}
		if input.Deadline != nil {
			t.Deadline = dateOnly(input.Deadline)
		}
		t.Interest = orDefault(input.Interest, t.Interest)
		t.Importance = orDefault(input.Importance, t.Importance)
		t.WorkHours = orDefault(input.WorkHours, t.WorkHours)
		if err := validateTask(*t); err != nil {
			return err
		}
		task = t
		return tx.Tasks.Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ClearDeadline(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	var task *model.Task
	err := commitCalendarChange(ctx, s.store, s.calendar, s.log, ownerID, func(tx *repository.Store) error {
		t, err := tx.Tasks.FindByID(ctx, ownerID, taskID)
		if err != nil {
			return err
		}
		t.Deadline = nil
		task = t
		return tx.Tasks.Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task with its executions and failed-task rows.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID uint) error {
	return commitCalendarChange(ctx, s.store, s.calendar, s.log, ownerID, func(tx *repository.Store) error {
		return tx.Tasks.Delete(ctx, ownerID, taskID)
	})
}

func validateTask(t model.Task) error {
	switch {
	case t.Name == "":
		return errs.Invalid("task name is required")
	case utf8.RuneCountInString(t.Name) > maxTaskNameLen:
		return errs.Invalid("task name is longer than %d characters", maxTaskNameLen)
	case t.Interest < 1 || t.Interest > 10:
		return errs.Invalid("interest must be between 1 and 10")
	case t.Importance < 1 || t.Importance > 10:
		return errs.Invalid("importance must be between 1 and 10")
	case t.WorkHours < 1:
		return errs.Invalid("work hours must be at least 1")
	}
	return nil
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := planner.DateOf(*t)
	return &d
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
