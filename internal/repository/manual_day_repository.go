package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-planner/internal/errs"
	"task-planner/internal/model"
)

// ManualDayRepository handles per-date capacity overrides.
type ManualDayRepository struct {
	db *gorm.DB
}

func NewManualDayRepository(db *gorm.DB) *ManualDayRepository {
	return &ManualDayRepository{db: db}
}

// Upsert pins day.Date for its owner, replacing the hours of an existing pin.
func (r *ManualDayRepository) Upsert(ctx context.Context, day *model.ManualDay) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"work_hours", "updated_at"}),
	}).Create(day).Error
	if err != nil {
		return errors.Wrap(err, "upsert manual day")
	}
	// On conflict the returned id is not reliable across drivers; reload the row.
	var stored model.ManualDay
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND date = ?", day.OwnerID, day.Date).First(&stored).Error; err != nil {
		return errors.Wrap(err, "reload manual day")
	}
	*day = stored
	return nil
}

func (r *ManualDayRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.ManualDay, error) {
	var days []model.ManualDay
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("date ASC").Find(&days).Error; err != nil {
		return nil, errors.Wrap(err, "list manual days")
	}
	return days, nil
}

func (r *ManualDayRepository) FindByID(ctx context.Context, ownerID, id uint) (*model.ManualDay, error) {
	var day model.ManualDay
	err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("manual day %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find manual day")
	}
	return &day, nil
}

func (r *ManualDayRepository) Delete(ctx context.Context, ownerID, id uint) error {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&model.ManualDay{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete manual day")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("manual day %d not found", id)
	}
	return nil
}
