package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// Job is one fetch-and-translate run.
type Job interface {
	Run(ctx context.Context, trigger domain.Trigger) domain.RunOutcome
}

var _ Job = (*JobRunner)(nil)

// SchedulerDeps wires the timing driver with the job it triggers.
type SchedulerDeps struct {
	Schedule        domain.ScheduleConfig
	Job             Job
	Driver          ports.Scheduler
	State           ports.StateStore
	Notifier        ports.Notifier
	NotifyOnSuccess bool
	Logger          *slog.Logger
	Now             func() time.Time
}

// Scheduler owns the scheduler state and the single-flight run slot shared by
// scheduled and manual triggers.
type Scheduler struct {
	schedule        domain.ScheduleConfig
	job             Job
	driver          ports.Scheduler
	stateStore      ports.StateStore
	notifier        ports.Notifier
	notifyOnSuccess bool
	logger          *slog.Logger
	now             func() time.Time

	mu           sync.Mutex
	state        domain.SchedulerState
	shuttingDown bool
	inflight     sync.WaitGroup
}

// NewScheduler returns a stopped scheduler with no recorded runs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		schedule:        deps.Schedule,
		job:             deps.Job,
		driver:          deps.Driver,
		stateStore:      deps.State,
		notifier:        deps.Notifier,
		notifyOnSuccess: deps.NotifyOnSuccess,
		logger:          logger,
		now:             now,
		state:           domain.SchedulerState{LastRunStatus: domain.RunNeverRun},
	}
}

// Restore loads the persisted last run from the state store, if any.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.stateStore == nil {
		return nil
	}
	persisted, err := s.stateStore.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load scheduler state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastRunAt = persisted.LastRunAt
	if persisted.LastRunStatus != "" {
		s.state.LastRunStatus = persisted.LastRunStatus
	}
	s.state.RunCount = persisted.RunCount
	return nil
}

// Start begins the background loop. It reports false when the loop was
// already running or could not be started.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRunning || s.driver == nil || s.shuttingDown {
		return false
	}

	loopCtx := context.WithoutCancel(ctx)
	if err := s.driver.Start(loopCtx, func(time.Time) { s.runScheduled(loopCtx) }); err != nil {
		s.logger.Error("start scheduler", "error", err)
		return false
	}

	s.state.IsRunning = true
	s.logger.Info("scheduler started",
		"trigger_hours", s.schedule.TriggerHours(),
		"timezone", s.schedule.Location().String(),
		"next_run_at", s.schedule.NextRunAt(s.now()))
	return true
}

// Stop halts future triggers. An in-flight run is left to finish.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsRunning {
		return false
	}
	if err := s.driver.Stop(context.Background()); err != nil {
		s.logger.Warn("stop scheduler driver", "error", err)
	}
	s.state.IsRunning = false
	s.logger.Info("scheduler stopped")
	return true
}

// Status copies the current state out from under the lock.
func (s *Scheduler) Status() domain.SchedulerStatus {
	now := s.now().In(s.schedule.Location())

	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.SchedulerStatus{
		IsRunning:     s.state.IsRunning,
		JobActive:     s.state.JobActive,
		LastRunStatus: s.state.LastRunStatus,
		RunCount:      s.state.RunCount,
		NextRunAt:     s.schedule.NextRunAt(now),
		CurrentTime:   now,
		Timezone:      s.schedule.Location().String(),
		TriggerHours:  s.schedule.TriggerHours(),
	}
	if s.state.LastRunAt != nil {
		at := *s.state.LastRunAt
		status.LastRunAt = &at
	}
	if s.state.LastOutcome != nil {
		outcome := *s.state.LastOutcome
		status.LastOutcome = &outcome
	}
	return status
}

// RunNow executes a manual run synchronously. It returns domain.ErrBusy when
// a run is already in progress and domain.ErrShuttingDown after Shutdown.
func (s *Scheduler) RunNow(ctx context.Context) (domain.RunOutcome, error) {
	if err := s.tryAcquire(); err != nil {
		return domain.RunOutcome{}, err
	}
	return s.execute(ctx, domain.TriggerManual), nil
}

// Trigger starts a manual run in the background. It fails like RunNow.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if err := s.tryAcquire(); err != nil {
		return err
	}
	go s.execute(ctx, domain.TriggerManual)
	return nil
}

// Shutdown stops the loop, refuses new runs and waits for an in-flight run
// until ctx expires.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight run: %w", ctx.Err())
	}
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if err := s.tryAcquire(); err != nil {
		s.logger.Info("scheduled trigger skipped",
			"reason", err,
			"next_run_at", s.schedule.NextRunAt(s.now()))
		return
	}
	s.execute(ctx, domain.TriggerScheduled)
}

// tryAcquire claims the run slot. inflight only grows under mu before
// shutdown begins.
func (s *Scheduler) tryAcquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown {
		return domain.ErrShuttingDown
	}
	if s.state.JobActive {
		return domain.ErrBusy
	}
	s.state.JobActive = true
	s.inflight.Add(1)
	return nil
}

// execute runs the job in the acquired slot. Callers cancelling ctx do not
// abort the run.
func (s *Scheduler) execute(ctx context.Context, trigger domain.Trigger) domain.RunOutcome {
	defer s.inflight.Done()
	runCtx := context.WithoutCancel(ctx)

	var outcome domain.RunOutcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("run panicked", "panic", r)
				outcome = domain.RunOutcome{
					Trigger:    trigger,
					StartedAt:  s.now(),
					FinishedAt: s.now(),
					Status:     domain.RunFailed,
					Err:        fmt.Sprintf("panic: %v", r),
				}
			}
		}()
		outcome = s.job.Run(runCtx, trigger)
	}()
	if outcome.FinishedAt.IsZero() {
		outcome.FinishedAt = s.now()
	}

	s.mu.Lock()
	finished := outcome.FinishedAt
	s.state.LastRunAt = &finished
	s.state.LastRunStatus = outcome.Status
	s.state.LastOutcome = &outcome
	s.state.RunCount++
	persisted := domain.PersistedState{
		LastRunAt:     &finished,
		LastRunStatus: outcome.Status,
		RunCount:      s.state.RunCount,
	}
	s.state.JobActive = false
	s.mu.Unlock()

	if s.stateStore != nil {
		if err := s.stateStore.SaveState(runCtx, persisted); err != nil {
			s.logger.Warn("save scheduler state", "error", err)
		}
	}
	s.report(runCtx, outcome)
	return outcome
}

func (s *Scheduler) report(ctx context.Context, outcome domain.RunOutcome) {
	if s.notifier == nil {
		return
	}
	if outcome.Status == domain.RunSuccess && !s.notifyOnSuccess {
		return
	}
	if err := s.notifier.PublishReport(ctx, buildReportMessage(outcome, s.schedule.Location())); err != nil {
		s.logger.Warn("publish run report", "run_id", outcome.RunID, "error", err)
	}
}

func buildReportMessage(outcome domain.RunOutcome, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "News run %s: %s\n", outcome.Trigger, outcome.Status)
	fmt.Fprintf(&b, "Finished: %s\n", outcome.FinishedAt.In(loc).Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Fetched %d, translated %d, failed %d, skipped %d, stored %d\n",
		outcome.ItemsFetched,
		outcome.ItemsTranslated,
		outcome.ItemsFailed,
		outcome.ItemsSkipped,
		outcome.ItemsStored)
	if outcome.Err != "" {
		fmt.Fprintf(&b, "Error: %s\n", outcome.Err)
	}
	return b.String()
}
