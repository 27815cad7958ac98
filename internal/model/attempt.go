package model

import "time"

// State is the terminal state of a reboot attempt.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Attempt records one run of the reboot sequence from validation to either a
// created replacement process or the step that failed.
type Attempt struct {
	ID         int64     `json:"id" yaml:"id" db:"id"`
	RunID      string    `json:"run_id" yaml:"run_id" db:"run_id"`
	TargetPID  int       `json:"target_pid" yaml:"target_pid" db:"target_pid"`
	LaunchDir  string    `json:"launch_dir" yaml:"launch_dir" db:"launch_dir"`
	Command    []string  `json:"command" yaml:"command"`
	Terminated bool      `json:"terminated" yaml:"terminated" db:"terminated"` // SIGTERM was delivered
	Killed     bool      `json:"killed" yaml:"killed" db:"killed"`             // target outlived the grace period
	NewPID     int       `json:"new_pid,omitempty" yaml:"new_pid,omitempty" db:"new_pid"`
	State      State     `json:"state" yaml:"state" db:"state"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty" db:"error"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at" db:"finished_at"`
}

// Duration returns how long the attempt took.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Succeeded reports whether a replacement process was created.
func (a Attempt) Succeeded() bool {
	return a.State == StateSucceeded
}
