package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
)

type CheckinJobs struct {
	registrations registration.Repository
	loc           *time.Location
	now           func() time.Time
}

func NewCheckinJobs(registrations registration.Repository, loc *time.Location) *CheckinJobs {
	return &CheckinJobs{
		registrations: registrations,
		loc:           loc,
		now:           time.Now,
	}
}

func (j *CheckinJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("expire_stale_checkins", interval, j.ExpireStaleCheckins)
}

// ExpireStaleCheckins clears open check-in pointers left over from earlier
// days so a late check-out never closes yesterday's time record.
func (j *CheckinJobs) ExpireStaleCheckins(ctx context.Context) error {
	today := j.now().In(j.loc).Format(time.DateOnly)

	cleared, err := j.registrations.ExpireCheckins(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to expire check-ins before %s: %w", today, err)
	}
	if cleared > 0 {
		slog.Info("Cron: expired stale check-ins", "before", today, "count", cleared)
	}
	return nil
}
