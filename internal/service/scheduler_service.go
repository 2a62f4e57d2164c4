package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), job)
}

// SchedulePurge removes expired login sessions every interval.
func (s *SchedulerService) SchedulePurge(accounts *AccountService, interval time.Duration, log zerolog.Logger) (cron.EntryID, error) {
	return s.ScheduleInterval(interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := accounts.PurgeExpiredSessions(ctx); err != nil {
			log.Error().Err(err).Msg("purge expired sessions")
		}
	})
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}
