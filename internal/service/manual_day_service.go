package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"task-planner/internal/errs"
	"task-planner/internal/model"
	"task-planner/internal/planner"
	"task-planner/internal/repository"
)

// ManualDayService pins the working hours of single dates.
type ManualDayService struct {
	store    *repository.Store
	calendar CalendarInvalidator
	log      zerolog.Logger
}

func NewManualDayService(store *repository.Store, calendar CalendarInvalidator, log zerolog.Logger) *ManualDayService {
	return &ManualDayService{
		store:    store,
		calendar: calendar,
		log:      log.With().Str("component", "manual_days").Logger(),
	}
}

// SetManualDay creates the pin for date or replaces its hours.
func (s *ManualDayService) SetManualDay(ctx context.Context, ownerID uint, date time.Time, workHours int) (*model.ManualDay, error) {
	if workHours < 0 || workHours > 24 {
		return nil, errs.Invalid("work hours must be between 0 and 24")
	}
	day := model.ManualDay{OwnerID: ownerID, Date: planner.DateOf(date), WorkHours: workHours}
	err := commitCalendarChange(ctx, s.store, s.calendar, s.log, ownerID, func(tx *repository.Store) error {
		return tx.ManualDays.Upsert(ctx, &day)
	})
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (s *ManualDayService) ListManualDays(ctx context.Context, ownerID uint) ([]model.ManualDay, error) {
	return s.store.ManualDays.ListByOwner(ctx, ownerID)
}

func (s *ManualDayService) GetManualDay(ctx context.Context, ownerID, id uint) (*model.ManualDay, error) {
	return s.store.ManualDays.FindByID(ctx, ownerID, id)
}

func (s *ManualDayService) DeleteManualDay(ctx context.Context, ownerID, id uint) error {
	return commitCalendarChange(ctx, s.store, s.calendar, s.log, ownerID, func(tx *repository.Store) error {
		return tx.ManualDays.Delete(ctx, ownerID, id)
	})
}
