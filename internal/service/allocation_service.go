package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"task-planner/internal/model"
	"task-planner/internal/planner"
	"task-planner/internal/repository"
)

// pipelineState is the last step an allocation run reached.
type pipelineState string

const (
	stateIdle             pipelineState = "idle"
	stateCacheInvalidated pipelineState = "cache_invalidated"
	stateDerivedWiped     pipelineState = "derived_wiped"
	stateInputsLoaded     pipelineState = "inputs_loaded"
	stateAllocated        pipelineState = "allocated"
	statePersisted        pipelineState = "persisted"
	stateCommitted        pipelineState = "committed"
)

// CalendarInvalidator drops the cached calendar pages of an owner.
type CalendarInvalidator interface {
	Invalidate(ctx context.Context, ownerID uint) error
}

// AllocationConfig carries the defaults handed to the allocator.
type AllocationConfig struct {
	DefaultDayHours  int
	DefaultTaskHours int
	HorizonDays      int
}

type AllocationRequest struct {
	OwnerID uint
	Method  string
	// StartDate defaults to today (UTC) when nil.
	StartDate *time.Time
}

// AllocationReport summarizes a committed run.
type AllocationReport struct {
	RunID      string
	Method     planner.Method
	StartDate  time.Time
	Generation uint64
	Days       int
	Executions int
	Failed     int
}

// AllocationService rebuilds an owner's derived schedule: it drops the cached
// calendar, wipes the derived rows and writes the allocator's output, all of
// the store work inside one transaction.
type AllocationService struct {
	store     *repository.Store
	allocator planner.Allocator
	calendar  CalendarInvalidator
	cfg       AllocationConfig
	locks     *ownerLocks
	now       func() time.Time
	log       zerolog.Logger
}

func NewAllocationService(store *repository.Store, allocator planner.Allocator, calendar CalendarInvalidator, cfg AllocationConfig, log zerolog.Logger) *AllocationService {
	return &AllocationService{
		store:     store,
		allocator: allocator,
		calendar:  calendar,
		cfg:       cfg,
		locks:     newOwnerLocks(),
		now:       time.Now,
		log:       log.With().Str("component", "allocation").Logger(),
	}
}

// Allocate runs the pipeline for req. An unknown method fails before anything
// is touched. Runs for the same owner are serialized.
func (s *AllocationService) Allocate(ctx context.Context, req AllocationRequest) (AllocationReport, error) {
	method, err := planner.ParseMethod(req.Method)
	if err != nil {
		return AllocationReport{}, err
	}
	start := planner.DateOf(s.now())
	if req.StartDate != nil {
		start = planner.DateOf(*req.StartDate)
	}

	report := AllocationReport{RunID: uuid.NewString(), Method: method, StartDate: start}
	log := s.log.With().
		Str("run_id", report.RunID).
		Uint("owner_id", req.OwnerID).
		Str("method", method.String()).
		Str("start_date", start.Format(dateLayout)).
		Logger()

	unlock := s.locks.Lock(req.OwnerID)
	defer unlock()

	state := stateIdle
	advance := func(next pipelineState) {
		state = next
		log.Debug().Str("state", string(state)).Msg("allocation state")
	}

	if err := s.calendar.Invalidate(ctx, req.OwnerID); err != nil {
		log.Error().Err(err).Str("state", string(state)).Msg("allocation aborted before any change")
		return AllocationReport{}, errors.Wrap(err, "invalidate calendar")
	}
	advance(stateCacheInvalidated)

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Schedule.Wipe(ctx, req.OwnerID); err != nil {
			return err
		}
		advance(stateDerivedWiped)

		in, err := s.loadInput(ctx, tx, req.OwnerID, start)
		if err != nil {
			return err
		}
		advance(stateInputsLoaded)

		res, err := s.allocator.Allocate(ctx, method, in)
		if err != nil {
			return errors.Wrap(err, "run allocator")
		}
		advance(stateAllocated)

		days, err := translate(res, in.Tasks)
		if err != nil {
			return err
		}
		if err := tx.Schedule.Persist(ctx, req.OwnerID, days, res.Failed); err != nil {
			return err
		}
		advance(statePersisted)

		gen, err := tx.Schedule.BumpGeneration(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		report.Generation = gen
		report.Days = len(days)
		report.Failed = len(res.Failed)
		for _, d := range days {
			report.Executions += len(d.TaskExecutions)
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back, so the store still holds the previous
		// run's rows while the cache for the owner is already empty.
		log.Error().Err(err).
			Bool("consistency_gap", true).
			Str("state", string(state)).
			Msg("partial pipeline failure")
		return AllocationReport{}, errors.Wrapf(err, "allocation failed after %s", state)
	}
	advance(stateCommitted)

	// A reader may have cached the old rows between the first invalidation and
	// the commit. The bumped generation already hides those pages.
	if err := s.calendar.Invalidate(ctx, req.OwnerID); err != nil {
		log.Warn().Err(err).Msg("post-commit invalidation failed")
	}

	log.Info().
		Uint64("generation", report.Generation).
		Int("days", report.Days).
		Int("executions", report.Executions).
		Int("failed", report.Failed).
		Msg("allocation committed")
	return report, nil
}

func (s *AllocationService) loadInput(ctx context.Context, tx *repository.Store, ownerID uint, start time.Time) (planner.Input, error) {
	tasks, err := tx.Tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return planner.Input{}, err
	}
	manual, err := tx.ManualDays.ListByOwner(ctx, ownerID)
	if err != nil {
		return planner.Input{}, err
	}

	in := planner.Input{
		Tasks:            make([]planner.Task, 0, len(tasks)),
		ManualDays:       make([]planner.ManualDay, 0, len(manual)),
		StartDate:        start,
		DefaultDayHours:  s.cfg.DefaultDayHours,
		DefaultTaskHours: s.cfg.DefaultTaskHours,
		HorizonDays:      s.cfg.HorizonDays,
	}
	for _, t := range tasks {
		in.Tasks = append(in.Tasks, planner.Task{
			Ref:        t.ID,
			Name:       t.Name,
			Deadline:   t.Deadline,
			Interest:   t.Interest,
			Importance: t.Importance,
			WorkHours:  t.WorkHours,
		})
	}
	for _, m := range manual {
		in.ManualDays = append(in.ManualDays, planner.ManualDay{Date: planner.DateOf(m.Date), WorkHours: m.WorkHours})
	}
	return in, nil
}

// translate maps allocator output onto derived rows. Every ref must name one of
// the loaded tasks.
func translate(res planner.Result, tasks []planner.Task) ([]model.Day, error) {
	known := make(map[uint]struct{}, len(tasks))
	for _, t := range tasks {
		known[t.Ref] = struct{}{}
	}
	check := func(ref uint) error {
		if _, ok := known[ref]; !ok {
			return errors.Errorf("allocator returned unknown task ref %d", ref)
		}
		return nil
	}

	days := make([]model.Day, 0, len(res.Days))
	for _, d := range res.Days {
		day := model.Day{
			Date:           planner.DateOf(d.Date),
			WorkHours:      d.WorkHours,
			TaskExecutions: make([]model.TaskExecution, 0, len(d.Schedule)),
		}
		for _, a := range d.Schedule {
			if err := check(a.TaskRef); err != nil {
				return nil, err
			}
			day.TaskExecutions = append(day.TaskExecutions, model.TaskExecution{TaskID: a.TaskRef, DoingHours: a.Hours})
		}
		days = append(days, day)
	}
	for _, ref := range res.Failed {
		if err := check(ref); err != nil {
			return nil, err
		}
	}
	return days, nil
}
