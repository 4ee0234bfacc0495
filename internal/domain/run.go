package domain

import "time"

// RunStatus is the outcome of one fetch-and-translate run.
type RunStatus string

const (
	RunNeverRun       RunStatus = "never_run"
	RunSuccess        RunStatus = "success"
	RunPartialFailure RunStatus = "partial_failure"
	RunFailed         RunStatus = "failed"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// RunOutcome summarises one run.
type RunOutcome struct {
	RunID           string
	Trigger         Trigger
	StartedAt       time.Time
	FinishedAt      time.Time
	ItemsFetched    int
	ItemsTranslated int
	ItemsFailed     int
	ItemsSkipped    int
	ItemsStored     int
	ItemsPurged     int
	Status          RunStatus
	Err             string
}

// Duration is the wall time of the run.
func (o RunOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// SchedulerState is the mutable scheduler record. IsRunning tracks the
// background loop, JobActive the single-flight run slot.
type SchedulerState struct {
	IsRunning     bool
	JobActive     bool
	LastRunAt     *time.Time
	LastRunStatus RunStatus
	LastOutcome   *RunOutcome
	RunCount      int
}

// PersistedState is the subset of scheduler state kept across restarts.
type PersistedState struct {
	LastRunAt     *time.Time
	LastRunStatus RunStatus
	RunCount      int
}

// SchedulerStatus is a read-only snapshot for status consumers.
type SchedulerStatus struct {
	IsRunning     bool
	JobActive     bool
	LastRunAt     *time.Time
	LastRunStatus RunStatus
	LastOutcome   *RunOutcome
	RunCount      int
	NextRunAt     time.Time
	CurrentTime   time.Time
	Timezone      string
	TriggerHours  []int
}
