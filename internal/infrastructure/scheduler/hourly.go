package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// HourlyTrigger fires a job at each configured trigger hour on a cron runner.
// Triggers that come due while the previous job still runs are skipped, and
// triggers missed while the process was down are not replayed.
type HourlyTrigger struct {
	schedule cron.Schedule
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var (
	_ ports.Scheduler = (*HourlyTrigger)(nil)
	_ cron.Schedule   = domain.ScheduleConfig{}
)

// NewHourlyTrigger builds a driver for the given schedule.
func NewHourlyTrigger(schedule domain.ScheduleConfig, logger *slog.Logger) *HourlyTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &HourlyTrigger{
		schedule: schedule,
		location: schedule.Location(),
		logger:   logger,
	}
}

// Start registers job with a fresh cron runner; calling it again while
// running is a no-op.
func (h *HourlyTrigger) Start(_ context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cron != nil {
		return nil
	}

	log := cronLogger{logger: h.logger}
	c := cron.New(
		cron.WithLocation(h.location),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	c.Schedule(h.schedule, cron.FuncJob(func() {
		job(time.Now().In(h.location))
	}))
	c.Start()
	h.cron = c

	h.logger.Debug("trigger started", "next_run_at", h.schedule.Next(time.Now()))
	return nil
}

// Stop halts the runner without waiting for a job that is already executing.
func (h *HourlyTrigger) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cron == nil {
		return nil
	}
	h.cron.Stop()
	h.cron = nil
	return nil
}

// cronLogger routes cron's internal logging to slog. Wake-up chatter goes to
// debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron "+msg, append(keysAndValues, "error", err)...)
}
