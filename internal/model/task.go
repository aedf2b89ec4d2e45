package model

import "time"

// Task is an allocation input. The orchestrator reads tasks but never changes them.
type Task struct {
	ID         uint   `gorm:"primaryKey"`
	OwnerID    uint   `gorm:"index;uniqueIndex:idx_task_owner_name"`
	Name       string `gorm:"size:128;uniqueIndex:idx_task_owner_name"`
	Deadline   *time.Time
	Interest   int `gorm:"check:chk_task_interest,interest >= 1 AND interest <= 10"`
	Importance int `gorm:"check:chk_task_importance,importance >= 1 AND importance <= 10"`
	WorkHours  int `gorm:"check:chk_task_work_hours,work_hours >= 1"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Executions []TaskExecution `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Failures   []FailedTask    `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// ManualDay pins the working hours of one date for its owner.
type ManualDay struct {
	ID        uint      `gorm:"primaryKey"`
	OwnerID   uint      `gorm:"index;uniqueIndex:idx_manual_day_owner_date"`
	Date      time.Time `gorm:"uniqueIndex:idx_manual_day_owner_date"`
	WorkHours int       `gorm:"check:chk_manual_day_work_hours,work_hours >= 0 AND work_hours <= 24"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
