package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper drops expired entries of an in-process store.
type Sweeper interface {
	Sweep() int
}

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewSchedulerService(loc *time.Location, log zerolog.Logger) *SchedulerService {
	log = log.With().Str("component", "scheduler").Logger()
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(&log))),
		),
		log: log,
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	spec, err := everySpec(interval)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleSweep evicts expired keys of sw every interval.
func (s *SchedulerService) ScheduleSweep(interval time.Duration, sw Sweeper) (cron.EntryID, error) {
	return s.ScheduleInterval(interval, func() {
		if n := sw.Sweep(); n > 0 {
			s.log.Debug().Int("evicted", n).Msg("kv sweep")
		}
	})
}

// Len reports the number of registered jobs.
func (s *SchedulerService) Len() int {
	return len(s.cron.Entries())
}

func everySpec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive")
	}
	// Cron resolution is one second.
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("@every %ds", seconds), nil
}
