package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse accepts a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 6 * * *" (daily 6am), "0 6 * * 1-5" (weekdays 6am).
func Parse(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Runner fires a job at every activation of a cron schedule.
type Runner struct {
	sched  cron.Schedule
	loc    *time.Location
	logger *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewRunner(sched cron.Schedule, loc *time.Location, logger *slog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		sched:  sched,
		loc:    loc,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// Run blocks until ctx is done. Jobs run one at a time; an activation that
// passes while a job is still running is skipped. No job starts once ctx is
// done, even if its activation time has already been reached.
func (r *Runner) Run(ctx context.Context, job func(ctx context.Context, at time.Time)) error {
	for {
		now := r.now().In(r.loc)
		next := r.sched.Next(now)
		wait := next.Sub(now)
		r.logger.Info("next scheduled run", "at", next.Format("Mon Jan 2 15:04"), "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(wait):
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		job(ctx, next)
	}
}
