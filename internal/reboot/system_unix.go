//go:build unix

package reboot

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type osSystem struct{}

func (osSystem) Signal(pid int, sig Signal) error {
	switch sig {
	case SignalTerm:
		return unix.Kill(pid, unix.SIGTERM)
	case SignalKill:
		return unix.Kill(pid, unix.SIGKILL)
	default:
		return unix.EINVAL
	}
}

// Alive sends signal 0. EPERM means the process exists but belongs to
// someone else, which still counts as running.
func (osSystem) Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func (osSystem) Chdir(dir string) error {
	return os.Chdir(dir)
}

// Start forks and execs the managed command in a new session so it has no
// controlling terminal and does not share the caller's process group. The
// runtime reports exec failures back over a close-on-exec pipe, so a failed
// exec never leaves a child running this binary.
func (osSystem) Start(spec LaunchSpec) (int, error) {
	if len(spec.Argv) == 0 {
		return 0, classifyStartError(exec.ErrNotFound)
	}
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...) //nolint:gosec // G204: argv comes from operator config
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, classifyStartError(err)
	}

	pid := cmd.Process.Pid
	// The replacement outlives us and is reparented to init; never wait on it.
	_ = cmd.Process.Release()
	return pid, nil
}

func (osSystem) Sleep(d time.Duration) {
	time.Sleep(d)
}
