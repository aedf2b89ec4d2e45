package repository

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"task-planner/internal/logging"
	"task-planner/internal/model"
)

// NewDB opens the relational store named by dsn and runs migrations. A
// postgres:// (or key=value "host=...") DSN selects PostgreSQL, anything else is
// a SQLite path.
func NewDB(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "daily_planner.db"
	}

	cfg := &gorm.Config{
		Logger:         logging.NewGormLogger(log),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres")
		}
	} else {
		if err := ensureDirForSQLite(dsn); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		if err := tuneSQLite(db); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every planner table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.ManualDay{},
		&model.Day{},
		&model.TaskExecution{},
		&model.FailedTask{},
		&model.ScheduleGeneration{},
	); err != nil {
		return errors.Wrap(err, "migrate db")
	}
	return nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.HasPrefix(dsn, "host=")
}

// tuneSQLite pins the pool to one connection so an in-memory database survives
// between queries and writers never contend, and turns on FK enforcement so
// deleting a Day cascades to its executions.
func tuneSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return errors.Wrap(err, "enable foreign keys")
	}
	return nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create db dir %q", dir)
	}
	return nil
}
