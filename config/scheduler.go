package config

import "time"

// SchedulerConfig holds submission bounds and the per-job retry policy.
type SchedulerConfig struct {
	// MinInterval and MaxInterval bound the user-supplied interval between action attempts.
	MinInterval time.Duration `env:"SCHEDULER_MIN_INTERVAL" envDefault:"1s"`
	MaxInterval time.Duration `env:"SCHEDULER_MAX_INTERVAL" envDefault:"60s"`

	// MaxTarget caps the number of successful actions a single job may request.
	MaxTarget int `env:"SCHEDULER_MAX_TARGET" envDefault:"10000"`

	// MaxConsecutiveErrors is the retryable-failure threshold that fails a job.
	MaxConsecutiveErrors int `env:"SCHEDULER_MAX_CONSECUTIVE_ERRORS" envDefault:"10"`

	// BackoffCap bounds the exponential delay applied after repeated failures.
	BackoffCap time.Duration `env:"SCHEDULER_BACKOFF_CAP" envDefault:"60s"`

	// TimeoutBuffer is added to target*interval to compute the watchdog deadline.
	TimeoutBuffer time.Duration `env:"SCHEDULER_TIMEOUT_BUFFER" envDefault:"30s"`

	// ActionTimeout bounds each external call made by a job.
	ActionTimeout time.Duration `env:"SCHEDULER_ACTION_TIMEOUT" envDefault:"10s"`

	// ProgressEvery throttles progress events to every Nth success. The final success always emits.
	ProgressEvery int `env:"SCHEDULER_PROGRESS_EVERY" envDefault:"1"`

	// HistoryCapacity bounds the terminated-job history.
	HistoryCapacity int `env:"SCHEDULER_HISTORY_CAPACITY" envDefault:"100"`

	// SnapshotHistoryLimit is the number of history entries sent to a new subscriber.
	SnapshotHistoryLimit int `env:"SCHEDULER_SNAPSHOT_HISTORY_LIMIT" envDefault:"20"`

	// SubscriberBuffer is the per-subscriber event buffer size.
	SubscriberBuffer int `env:"SCHEDULER_SUBSCRIBER_BUFFER" envDefault:"64"`

	// MaxActivePerOwner limits concurrent live jobs per owner. Zero disables the quota.
	MaxActivePerOwner int `env:"SCHEDULER_MAX_ACTIVE_PER_OWNER" envDefault:"0"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.MinInterval <= 0 {
		s.MinInterval = time.Second
	}
	if s.MaxInterval < s.MinInterval {
		s.MaxInterval = s.MinInterval
	}
	if s.MaxTarget < 1 {
		s.MaxTarget = 1
	}
	if s.MaxConsecutiveErrors < 1 {
		s.MaxConsecutiveErrors = 1
	}
	if s.BackoffCap <= 0 {
		s.BackoffCap = 60 * time.Second
	}
	if s.TimeoutBuffer < 0 {
		s.TimeoutBuffer = 0
	}
	if s.ActionTimeout <= 0 {
		s.ActionTimeout = 10 * time.Second
	}
	if s.ProgressEvery < 1 {
		s.ProgressEvery = 1
	}
	if s.HistoryCapacity < 1 {
		s.HistoryCapacity = 1
	}
	if s.SnapshotHistoryLimit < 0 {
		s.SnapshotHistoryLimit = 0
	}
	if s.SnapshotHistoryLimit > s.HistoryCapacity {
		s.SnapshotHistoryLimit = s.HistoryCapacity
	}
	if s.SubscriberBuffer < 1 {
		s.SubscriberBuffer = 1
	}
	if s.MaxActivePerOwner < 0 {
		s.MaxActivePerOwner = 0
	}
}
