// Package reboot terminates a running service and relaunches its managed
// command detached from the caller's session.
//
// The sequence is strictly ordered: SIGTERM, a grace period, SIGKILL if the
// target survived, a short reclaim wait, a working-directory switch, and
// finally creation of the replacement process. Signal failures are warnings;
// a failed directory switch or process creation aborts the run.
package reboot

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/faucetdb/reboot/internal/model"
)

const (
	DefaultGrace    = 500 * time.Millisecond
	DefaultKillWait = 200 * time.Millisecond
)

// DefaultCommand runs the project's development server.
var DefaultCommand = []string{"npm", "run", "dev"}

// Config controls a Controller.
type Config struct {
	// Grace is how long the target gets to exit after SIGTERM.
	Grace time.Duration
	// KillWait is how long to wait after SIGKILL before relaunching.
	KillWait time.Duration
	// Command is the argv of the replacement process. The first element is
	// looked up in PATH.
	Command []string
	// PIDFile, if set, is locked for the duration of the run and receives
	// the replacement's pid.
	PIDFile string
	// Output, if set, is a file the replacement appends its stdout and
	// stderr to. Otherwise it inherits the controller's streams.
	Output string
}

// DefaultConfig returns the timings and command used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Grace:    DefaultGrace,
		KillWait: DefaultKillWait,
		Command:  append([]string(nil), DefaultCommand...),
	}
}

// Controller runs the reboot sequence against a System.
type Controller struct {
	cfg    Config
	sys    System
	rep    *Reporter
	logger *slog.Logger
}

// New creates a Controller. A nil logger discards structured logs.
func New(cfg Config, sys System, rep *Reporter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(cfg.Command) == 0 {
		cfg.Command = append([]string(nil), DefaultCommand...)
	}
	return &Controller{cfg: cfg, sys: sys, rep: rep, logger: logger}
}

// ParseArgs validates the positional arguments <pid> <project_dir>.
func ParseArgs(args []string) (int, string, error) {
	if len(args) != 2 {
		return 0, "", ErrUsage
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil || pid <= 0 {
		return 0, "", fmt.Errorf("%w: %s", ErrInvalidPID, args[0])
	}
	if args[1] == "" {
		return 0, "", ErrInvalidDir
	}
	return pid, args[1], nil
}

// Reboot parses args and runs the sequence. Argument errors are returned
// before anything is signaled, with a zero Attempt.
func (c *Controller) Reboot(args []string) (model.Attempt, error) {
	pid, dir, err := ParseArgs(args)
	if err != nil {
		return model.Attempt{}, err
	}
	return c.Run(pid, dir)
}

// Run terminates pid and starts the managed command in dir. It returns once
// the replacement process exists; it never waits for it to finish starting.
func (c *Controller) Run(pid int, dir string) (model.Attempt, error) {
	if pid <= 0 {
		return model.Attempt{}, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	if dir == "" {
		return model.Attempt{}, ErrInvalidDir
	}

	// The journal keys on the absolute directory; chdir still gets dir as given.
	launchDir, err := filepath.Abs(dir)
	if err != nil {
		launchDir = dir
	}

	a := model.Attempt{
		RunID:     uuid.NewString(),
		TargetPID: pid,
		LaunchDir: launchDir,
		Command:   append([]string(nil), c.cfg.Command...),
		StartedAt: time.Now().UTC(),
	}
	logger := c.logger.With("run_id", a.RunID, "pid", pid)

	newPID, err := c.run(&a, dir, logger)
	a.FinishedAt = time.Now().UTC()
	if err != nil {
		a.State = model.StateFailed
		a.Error = err.Error()
		logger.Debug("reboot failed", "error", err, "elapsed", a.Duration())
		return a, err
	}

	a.State = model.StateSucceeded
	a.NewPID = newPID
	logger.Debug("reboot succeeded", "new_pid", newPID, "elapsed", a.Duration())
	return a, nil
}

func (c *Controller) run(a *model.Attempt, dir string, logger *slog.Logger) (int, error) {
	pid := a.TargetPID

	// Relative paths refer to where the operator invoked us, not the
	// launch directory.
	pidPath, err := absPath(c.cfg.PIDFile)
	if err != nil {
		return 0, fmt.Errorf("resolve pid file path: %w", err)
	}
	output, err := absPath(c.cfg.Output)
	if err != nil {
		return 0, fmt.Errorf("resolve output path: %w", err)
	}

	// Must be opened before the target is signaled.
	var outFile *os.File
	if output != "" {
		outFile, err = os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return 0, fmt.Errorf("open output file: %w", err)
		}
		defer outFile.Close()
	}

	var pidFile *PIDFile
	if pidPath != "" {
		pidFile = NewPIDFile(pidPath)
		if err := pidFile.Lock(); err != nil {
			return 0, err
		}
		defer pidFile.Unlock()
	}

	c.rep.Progress("Killing process %d...", pid)
	if err := c.sys.Signal(pid, SignalTerm); err != nil {
		c.rep.Warn("%v", fmt.Errorf("%w %s: %v", ErrSignal, SignalTerm, err))
	} else {
		a.Terminated = true
		logger.Debug("sent signal", "signal", SignalTerm)
	}

	c.sys.Sleep(c.cfg.Grace)

	if c.sys.Alive(pid) {
		a.Killed = true
		c.rep.Progress("Process still alive, sending SIGKILL...")
		if err := c.sys.Signal(pid, SignalKill); err != nil {
			c.rep.Warn("%v", fmt.Errorf("%w %s: %v", ErrSignal, SignalKill, err))
		} else {
			logger.Debug("sent signal", "signal", SignalKill)
		}
		c.sys.Sleep(c.cfg.KillWait)
	}

	c.rep.Progress("Process terminated. Restarting in %s...", dir)
	if err := c.sys.Chdir(dir); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrChdir, err)
	}

	spec := LaunchSpec{Argv: a.Command, Stdout: os.Stdout, Stderr: os.Stderr}
	if outFile != nil {
		spec.Stdout, spec.Stderr = outFile, outFile
	}

	newPID, err := c.sys.Start(spec)
	if err != nil {
		return 0, err
	}
	c.rep.Progress("Started new process with PID %d", newPID)
	logger.Debug("started replacement", "new_pid", newPID, "command", spec.String())

	if pidFile != nil {
		if err := pidFile.Write(newPID); err != nil {
			c.rep.Warn("failed to record new PID in %s: %v", pidFile.Path(), err)
		}
	}
	return newPID, nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}
