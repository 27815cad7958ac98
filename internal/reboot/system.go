package reboot

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// Signal is a termination request the controller can deliver to the target.
type Signal int

const (
	SignalTerm Signal = iota + 1
	SignalKill
)

func (s Signal) String() string {
	switch s {
	case SignalTerm:
		return "SIGTERM"
	case SignalKill:
		return "SIGKILL"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// LaunchSpec describes the managed command started in place of the target.
// The child always runs in the controller's current working directory.
type LaunchSpec struct {
	Argv   []string
	Stdout *os.File // nil means /dev/null
	Stderr *os.File
}

func (l LaunchSpec) String() string {
	return strings.Join(l.Argv, " ")
}

// System is the set of OS facilities the reboot sequence is built on.
type System interface {
	// Signal delivers sig to pid.
	Signal(pid int, sig Signal) error
	// Alive probes pid without affecting it.
	Alive(pid int) bool
	// Chdir changes the working directory of the calling process.
	Chdir(dir string) error
	// Start creates the replacement process in its own session and returns
	// its pid without waiting for it.
	Start(spec LaunchSpec) (int, error)
	// Sleep blocks for d.
	Sleep(d time.Duration)
}

// OSSystem returns the System backed by the host operating system.
func OSSystem() System {
	return osSystem{}
}

// classifyStartError separates resource exhaustion while creating the process
// from failures to load the managed command into it.
func classifyStartError(err error) error {
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM) {
		return fmt.Errorf("%w: %v", ErrFork, err)
	}
	return fmt.Errorf("%w: %v", ErrExec, err)
}
