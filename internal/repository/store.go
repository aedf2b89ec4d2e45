package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one *gorm.DB, which is either the
// pool or an open transaction.
type Store struct {
	db         *gorm.DB
	Users      *UserRepository
	Tasks      *TaskRepository
	ManualDays *ManualDayRepository
	Schedule   *ScheduleRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewUserRepository(db),
		Tasks:      NewTaskRepository(db),
		ManualDays: NewManualDayRepository(db),
		Schedule:   NewScheduleRepository(db),
	}
}

// Transaction runs fn with a Store bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
