// Package schedule reruns the classification job on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
)

type Job func(ctx context.Context) error

// Run blocks, calling job at every tick of cfg.ClassifySchedule until ctx
// is done. Job errors are logged and the loop keeps going.
func Run(ctx context.Context, cfg config.Config, job Job) error {
	expr := strings.TrimSpace(cfg.ClassifySchedule)
	if expr == "" {
		return &domain.ConfigurationError{Reason: "classify_schedule is not set"}
	}
	sched, err := config.ParseSchedule(expr)
	if err != nil {
		return &domain.ConfigurationError{Reason: "invalid classify_schedule: " + err.Error()}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	log.Printf("schedule classify cron=%q timezone=%s", expr, loc)
	return loop(ctx, sched, loc, job, time.Now, time.After)
}

func loop(
	ctx context.Context,
	sched cron.Schedule,
	loc *time.Location,
	job Job,
	now func() time.Time,
	after func(time.Duration) <-chan time.Time,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := now().In(loc)
		next := sched.Next(current)
		wait := next.Sub(current)
		log.Printf("schedule next run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-after(wait):
		}

		if err := job(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("schedule run error: %v", err)
			continue
		}
		log.Printf("schedule run complete")
	}
}
