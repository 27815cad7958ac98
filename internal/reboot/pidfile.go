package reboot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// PIDFile stores the pid of the managed service between reboots. A sibling
// "<path>.lock" file serializes reboots that share the same PID file.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// NewPIDFile creates a PIDFile at path. Nothing is touched on disk until
// Lock or Write is called.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the PID file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Lock takes the reboot lock without blocking. It returns ErrBusy when
// another process holds it.
func (p *PIDFile) Lock() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("create pid file dir: %w", err)
	}
	locked, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", p.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w (lock held on %s)", ErrBusy, p.lock.Path())
	}
	return nil
}

// Unlock releases the reboot lock.
func (p *PIDFile) Unlock() error {
	return p.lock.Unlock()
}

// Read returns the pid recorded in the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q in %s", ErrInvalidPID, strings.TrimSpace(string(data)), p.path)
	}
	return pid, nil
}

// Write replaces the file contents with pid. Readers never observe a
// partially written file.
func (p *PIDFile) Write(pid int) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create pid file dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reboot-pid-*")
	if err != nil {
		return fmt.Errorf("create temp pid file: %w", err)
	}
	tmpName := tmp.Name()
	shouldRemove := true
	defer func() {
		_ = tmp.Close()
		if shouldRemove {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod pid file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("rename pid file: %w", err)
	}
	shouldRemove = false
	return nil
}
