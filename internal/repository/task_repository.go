package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"task-planner/internal/errs"
	"task-planner/internal/model"
)

// TaskRepository handles CRUD for tasks. Every lookup is scoped to an owner, so
// another user's task is indistinguishable from a missing one.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Create(task).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Invalid("task %q already exists", task.Name)
	}
	return errors.Wrap(err, "create task")
}

// ListByOwner returns the owner's tasks in creation order.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("task %d not found", taskID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find task")
	}
	return &task, nil
}

// Save writes every column of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Save(task).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Invalid("task %q already exists", task.Name)
	}
	return errors.Wrap(err, "update task")
}

// Delete removes a task together with the derived rows that reference it.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("owner_id = ? AND task_id = ?", ownerID, taskID).Delete(&model.FailedTask{}).Error; err != nil {
		return errors.Wrap(err, "delete failed task rows")
	}
	if err := db.Where("owner_id = ? AND task_id = ?", ownerID, taskID).Delete(&model.TaskExecution{}).Error; err != nil {
		return errors.Wrap(err, "delete task executions")
	}
	res := db.Where("owner_id = ? AND id = ?", ownerID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete task")
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("task %d not found", taskID)
	}
	return nil
}
