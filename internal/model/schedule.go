package model

import "time"

// Day, TaskExecution and FailedTask are derived rows: every allocation run
// deletes an owner's previous set and writes a fresh one.

type Day struct {
	ID        uint      `gorm:"primaryKey"`
	OwnerID   uint      `gorm:"index;uniqueIndex:idx_day_owner_date"`
	Date      time.Time `gorm:"uniqueIndex:idx_day_owner_date"`
	WorkHours int       `gorm:"check:chk_day_work_hours,work_hours >= 0 AND work_hours <= 24"`

	TaskExecutions []TaskExecution `gorm:"foreignKey:DayID;constraint:OnDelete:CASCADE"`
}

type TaskExecution struct {
	ID         uint `gorm:"primaryKey"`
	DoingHours int  `gorm:"check:chk_execution_doing_hours,doing_hours >= 1"`
	TaskID     uint `gorm:"index"`
	DayID      uint `gorm:"index"`
	OwnerID    uint `gorm:"index"`

	Task *Task `gorm:"foreignKey:TaskID"`
}

type FailedTask struct {
	ID      uint `gorm:"primaryKey"`
	TaskID  uint `gorm:"uniqueIndex:idx_failed_task_owner_task"`
	OwnerID uint `gorm:"index;uniqueIndex:idx_failed_task_owner_task"`

	Task *Task `gorm:"foreignKey:TaskID"`
}

// ScheduleGeneration is bumped in every transaction that changes what an
// owner's calendar shows. Cached calendar pages carry the generation they were
// built from, so a page computed before a commit can be told apart from one
// computed after it.
type ScheduleGeneration struct {
	OwnerID    uint   `gorm:"primaryKey;autoIncrement:false"`
	Generation uint64 `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}
