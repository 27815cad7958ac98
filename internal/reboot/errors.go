package reboot

import "errors"

var (
	// ErrUsage is returned when the positional arguments are not exactly
	// <pid> <project_dir>.
	ErrUsage = errors.New("usage: reboot <pid> <project_dir>")

	// ErrInvalidPID is returned for a pid that is not a positive integer.
	ErrInvalidPID = errors.New("invalid PID")

	// ErrInvalidDir is returned for an empty launch directory.
	ErrInvalidDir = errors.New("invalid project directory")

	// ErrSignal wraps a failed SIGTERM or SIGKILL delivery. It is reported
	// as a warning and never aborts the sequence.
	ErrSignal = errors.New("failed to send signal")

	// ErrChdir is returned when the controller cannot enter the launch directory.
	ErrChdir = errors.New("failed to change directory")

	// ErrFork is returned when the OS refuses to create a new process.
	ErrFork = errors.New("fork failed")

	// ErrExec is returned when the managed command cannot replace the child image.
	ErrExec = errors.New("failed to exec")

	// ErrBusy is returned when another reboot holds the PID file lock.
	ErrBusy = errors.New("another reboot is in progress")
)
