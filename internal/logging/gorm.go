package logging

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// GormWriter feeds gorm's logger into zerolog.
type GormWriter struct {
	log zerolog.Logger
}

func (w GormWriter) Printf(format string, args ...any) {
	w.log.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewGormLogger reports slow queries and errors through log.
func NewGormLogger(log zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(
		GormWriter{log: log.With().Str("component", "gorm").Logger()},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
