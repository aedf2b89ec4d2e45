package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"task-planner/internal/cache"
	"task-planner/internal/config"
	"task-planner/internal/kv"
	"task-planner/internal/logging"
	"task-planner/internal/planner"
	"task-planner/internal/ratelimit"
	"task-planner/internal/repository"
	"task-planner/internal/service"
)

// app is the wired process: config, logger, stores and services.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *repository.Store
	kv    kv.Store

	calendar   *service.CalendarService
	tasks      *service.TaskService
	manualDays *service.ManualDayService
	allocation *service.AllocationService
	reminder   *service.ReminderService

	calendarLimit *ratelimit.Limiter
	allocateLimit *ratelimit.Limiter

	closers []io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, logCloser := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   logging.FileConfig{Path: cfg.Log.File},
	})
	a := &app{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = repository.NewStore(db)
	a.closers = append(a.closers, a.store)

	if a.kv, err = openKV(ctx, cfg.KV); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.kv)

	a.calendar = service.NewCalendarService(a.store, cache.New[service.CalendarPage](a.kv, cfg.Cache.TTL), log)
	a.tasks = service.NewTaskService(a.store, a.calendar, service.TaskDefaults{
		Interest:   cfg.Planner.DefaultInterest,
		Importance: cfg.Planner.DefaultImportance,
		WorkHours:  cfg.Planner.DefaultTaskWorkHours,
	}, log)
	a.manualDays = service.NewManualDayService(a.store, a.calendar, log)
	a.allocation = service.NewAllocationService(a.store, planner.New(), a.calendar, service.AllocationConfig{
		DefaultDayHours:  cfg.Planner.DefaultDayWorkHours,
		DefaultTaskHours: cfg.Planner.DefaultTaskWorkHours,
		HorizonDays:      cfg.Planner.HorizonDays,
	}, log)
	a.reminder = service.NewReminderService(a.calendar)
	a.calendarLimit = ratelimit.New(a.kv, cfg.Limits.Calendar.Requests, cfg.Limits.Calendar.Window, log)
	a.allocateLimit = ratelimit.New(a.kv, cfg.Limits.Allocate.Requests, cfg.Limits.Allocate.Window, log)

	log.Debug().
		Str("kv_backend", cfg.KV.Backend).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("app wired")
	return a, nil
}

func openKV(ctx context.Context, cfg config.KVConfig) (kv.Store, error) {
	if cfg.Backend == "redis" {
		return kv.NewRedis(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return kv.NewMemoryStore(), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}
