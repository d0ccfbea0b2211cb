// Package scheduler runs stored campaign schedules on their cron cadence.
package scheduler

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/dataeval/dingomark/pkg/crew"
	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/marketing"
	"github.com/dataeval/dingomark/pkg/store"
)

type Scheduler struct {
	store        *store.Store
	svc          *marketing.Service
	pollInterval time.Duration
}

func New(st *store.Store, svc *marketing.Service, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Scheduler{
		store:        st,
		svc:          svc,
		pollInterval: pollInterval,
	}
}

// ValidateCron rejects malformed cron expressions before a schedule is
// stored.
func ValidateCron(expr string) error {
	if !gronx.New().IsValid(expr) {
		return &crew.ValidationError{Field: "cron_expr", Reason: "invalid cron expression"}
	}
	return nil
}

// NextRun computes the next firing time for a cron expression. The result
// is UTC so it compares correctly against the store's UTC timestamps.
func NextRun(expr string) (time.Time, error) {
	next, err := gronx.NextTick(expr, false)
	if err != nil {
		return time.Time{}, &crew.ValidationError{Field: "cron_expr", Reason: err.Error()}
	}
	return next.UTC(), nil
}

// Start polls for due schedules until ctx is cancelled. Blocking; run it in
// its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	logger.InfoCF("scheduler", "scheduler started",
		map[string]any{"poll_interval": s.pollInterval.String()})

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("scheduler", "scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	due, err := s.store.DueSchedules(time.Now().UTC())
	if err != nil {
		logger.ErrorCF("scheduler", "failed to load due schedules",
			map[string]any{"error": err.Error()})
		return
	}

	for _, schedule := range due {
		if ctx.Err() != nil {
			return
		}
		s.execute(ctx, schedule)
	}
}

func (s *Scheduler) execute(ctx context.Context, schedule store.Schedule) {
	logger.InfoCF("scheduler", "executing schedule",
		map[string]any{"id": schedule.ID, "name": schedule.Name, "operation": schedule.Operation})

	op, err := marketing.ParseOperation(schedule.Operation)

	lastStatus := "success"
	lastError := ""
	if err == nil {
		_, err = s.svc.ExecuteOperation(ctx, op, []byte(schedule.RequestJSON))
	}
	if err != nil {
		lastStatus = "failed"
		lastError = err.Error()
		logger.ErrorCF("scheduler", "schedule execution failed",
			map[string]any{"id": schedule.ID, "error": err.Error()})
	}

	var nextRunAt *time.Time
	if next, nextErr := NextRun(schedule.CronExpr); nextErr == nil {
		nextRunAt = &next
	}

	if err := s.store.UpdateScheduleRun(schedule.ID, lastStatus, lastError, nextRunAt); err != nil {
		logger.ErrorCF("scheduler", "failed to record schedule run",
			map[string]any{"id": schedule.ID, "error": err.Error()})
	}
}
