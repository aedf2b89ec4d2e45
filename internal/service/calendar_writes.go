package service

import (
	"context"

	"github.com/rs/zerolog"

	"task-planner/internal/repository"
)

// commitCalendarChange runs fn and a generation bump for ownerID in one
// transaction, then drops the owner's cached calendar pages. A failed drop is
// only logged: the new generation already marks the old pages stale.
func commitCalendarChange(ctx context.Context, store *repository.Store, calendar CalendarInvalidator, log zerolog.Logger, ownerID uint, fn func(tx *repository.Store) error) error {
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		_, err := tx.Schedule.BumpGeneration(ctx, ownerID)
		return err
	})
	if err != nil {
		return err
	}
	if err := calendar.Invalidate(ctx, ownerID); err != nil {
		log.Warn().Err(err).Uint("owner_id", ownerID).Msg("calendar invalidation failed")
	}
	return nil
}
