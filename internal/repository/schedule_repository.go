package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-planner/internal/model"
)

const persistBatchSize = 500

// ScheduleRepository owns the derived rows (days, task executions, failed
// tasks) and the per-owner schedule generation.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Wipe deletes all derived rows of owner, children before parents. Wiping an
// owner without derived rows is a no-op.
func (r *ScheduleRepository) Wipe(ctx context.Context, ownerID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("owner_id = ?", ownerID).Delete(&model.FailedTask{}).Error; err != nil {
		return errors.Wrap(err, "wipe failed tasks")
	}
	if err := db.Where("owner_id = ?", ownerID).Delete(&model.TaskExecution{}).Error; err != nil {
		return errors.Wrap(err, "wipe task executions")
	}
	if err := db.Where("owner_id = ?", ownerID).Delete(&model.Day{}).Error; err != nil {
		return errors.Wrap(err, "wipe days")
	}
	return nil
}

// Persist inserts days with their nested executions and the failed-task rows in
// one transaction (a savepoint when called inside one), so either all of the new
// derived state is written or none of it is.
func (r *ScheduleRepository) Persist(ctx context.Context, ownerID uint, days []model.Day, failedTaskIDs []uint) error {
	for i := range days {
		days[i].ID = 0
		days[i].OwnerID = ownerID
		for j := range days[i].TaskExecutions {
			days[i].TaskExecutions[j].ID = 0
			days[i].TaskExecutions[j].OwnerID = ownerID
		}
	}
	failed := make([]model.FailedTask, 0, len(failedTaskIDs))
	for _, id := range failedTaskIDs {
		failed = append(failed, model.FailedTask{TaskID: id, OwnerID: ownerID})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(days) > 0 {
			if err := tx.CreateInBatches(&days, persistBatchSize).Error; err != nil {
				return errors.Wrap(err, "persist days")
			}
		}
		if len(failed) > 0 {
			if err := tx.CreateInBatches(&failed, persistBatchSize).Error; err != nil {
				return errors.Wrap(err, "persist failed tasks")
			}
		}
		return nil
	})
}

// ListDays returns the owner's days on or after from, date ascending, with
// their executions. withTasks also loads each execution's task.
func (r *ScheduleRepository) ListDays(ctx context.Context, ownerID uint, from time.Time, withTasks bool) ([]model.Day, error) {
	q := r.db.WithContext(ctx).
		Where("owner_id = ? AND date >= ?", ownerID, from).
		Order("date ASC").
		Preload("TaskExecutions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
	if withTasks {
		q = q.Preload("TaskExecutions.Task")
	}
	var days []model.Day
	if err := q.Find(&days).Error; err != nil {
		return nil, errors.Wrap(err, "list days")
	}
	return days, nil
}

func (r *ScheduleRepository) ListFailed(ctx context.Context, ownerID uint) ([]model.FailedTask, error) {
	var failed []model.FailedTask
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Preload("Task").
		Find(&failed).Error
	if err != nil {
		return nil, errors.Wrap(err, "list failed tasks")
	}
	return failed, nil
}

// Generation returns the owner's current schedule generation, 0 if never bumped.
func (r *ScheduleRepository) Generation(ctx context.Context, ownerID uint) (uint64, error) {
	var gen model.ScheduleGeneration
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Limit(1).Find(&gen).Error; err != nil {
		return 0, errors.Wrap(err, "read schedule generation")
	}
	return gen.Generation, nil
}

// BumpGeneration increments the owner's generation and returns the new value.
// Call it inside the transaction whose commit makes the change visible.
func (r *ScheduleRepository) BumpGeneration(ctx context.Context, ownerID uint) (uint64, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"generation": gorm.Expr("schedule_generations.generation + 1"),
			"updated_at": now,
		}),
	}).Create(&model.ScheduleGeneration{OwnerID: ownerID, Generation: 1, UpdatedAt: now}).Error
	if err != nil {
		return 0, errors.Wrap(err, "bump schedule generation")
	}
	return r.Generation(ctx, ownerID)
}
