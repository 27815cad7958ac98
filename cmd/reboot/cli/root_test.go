package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faucetdb/reboot/internal/journal"
	"github.com/faucetdb/reboot/internal/model"
	"github.com/faucetdb/reboot/internal/reboot"
)

// stubSystem stands in for the OS so command tests never signal real
// processes or change the test binary's directory.
type stubSystem struct {
	calls    []string
	alive    bool
	chdirErr error
	startPID int
	argv     []string
}

func (s *stubSystem) Signal(pid int, sig reboot.Signal) error {
	s.calls = append(s.calls, "signal "+sig.String())
	return nil
}

func (s *stubSystem) Alive(pid int) bool {
	s.calls = append(s.calls, "alive")
	return s.alive
}

func (s *stubSystem) Chdir(dir string) error {
	s.calls = append(s.calls, "chdir "+dir)
	return s.chdirErr
}

func (s *stubSystem) Start(spec reboot.LaunchSpec) (int, error) {
	s.calls = append(s.calls, "start")
	s.argv = spec.Argv
	return s.startPID, nil
}

func (s *stubSystem) Sleep(d time.Duration) {
	s.calls = append(s.calls, "sleep "+d.String())
}

func execute(t *testing.T, sys reboot.System, args ...string) (string, string, error) {
	t.Helper()
	if sys == nil {
		sys = &stubSystem{}
	}
	cmd := newRootCmd("1.2.3", "abc123", "2026-01-01", sys)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRoot_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no args", nil, reboot.ErrUsage},
		{"pid only", []string{"42"}, reboot.ErrUsage},
		{"non-numeric pid", []string{"abc", "/srv/app"}, reboot.ErrInvalidPID},
		{"zero pid", []string{"0", "/srv/app"}, reboot.ErrInvalidPID},
		{"negative pid after dashes", []string{"--", "-5", "/srv/app"}, reboot.ErrInvalidPID},
		{"negative pid", []string{"-5", "/srv/app"}, reboot.ErrInvalidPID},
		{"negative pid with flags", []string{"--grace", "1s", "-12", "/srv/app"}, reboot.ErrInvalidPID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &stubSystem{}
			out, _, err := execute(t, sys, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(sys.calls) != 0 {
				t.Errorf("OS calls on invalid input: %v", sys.calls)
			}
			if out != "" {
				t.Errorf("unexpected stdout: %q", out)
			}
		})
	}
}

func TestRoot_Success(t *testing.T) {
	sys := &stubSystem{startPID: 5151}
	out, errOut, err := execute(t, sys, "--grace", "1s", "4242", "/srv/app")
	if err != nil {
		t.Fatalf("execute: %v (stderr %q)", err, errOut)
	}

	want := []string{"signal SIGTERM", "sleep 1s", "alive", "chdir /srv/app", "start"}
	if strings.Join(sys.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", sys.calls, want)
	}
	if strings.Join(sys.argv, " ") != "npm run dev" {
		t.Errorf("argv = %v, want default command", sys.argv)
	}
	for _, line := range []string{
		"[reboot] Killing process 4242...",
		"[reboot] Process terminated. Restarting in /srv/app...",
		"[reboot] Started new process with PID 5151",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("stdout missing %q:\n%s", line, out)
		}
	}
}

func TestRoot_CommandFromEnv(t *testing.T) {
	t.Setenv("REBOOT_COMMAND", "go run ./cmd/server")
	sys := &stubSystem{startPID: 7}
	if _, _, err := execute(t, sys, "42", "/srv/app"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.Join(sys.argv, "|"); got != "go|run|./cmd/server" {
		t.Errorf("argv = %q", got)
	}
}

func TestRoot_CommandFlagOverridesEnv(t *testing.T) {
	t.Setenv("REBOOT_COMMAND", "go run ./cmd/server")
	sys := &stubSystem{startPID: 7}
	if _, _, err := execute(t, sys, "--command", "make", "--command", "serve", "42", "/srv/app"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.Join(sys.argv, "|"); got != "make|serve" {
		t.Errorf("argv = %q, want make|serve", got)
	}
}

func TestRoot_CommandFlagWithSpaces(t *testing.T) {
	sys := &stubSystem{startPID: 7}
	if _, _, err := execute(t, sys, "--command", "/opt/my app/serve", "42", "/srv/app"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(sys.argv) != 1 || sys.argv[0] != "/opt/my app/serve" {
		t.Errorf("argv = %q, want a single argument", sys.argv)
	}
}

func TestRoot_UnknownShorthandStillFails(t *testing.T) {
	_, _, err := execute(t, nil, "-x", "42", "/srv/app")
	if err == nil || errors.Is(err, reboot.ErrInvalidPID) {
		t.Fatalf("error = %v, want an unknown flag error", err)
	}
}

func TestRoot_RecordsJournal(t *testing.T) {
	dir := t.TempDir()

	sys := &stubSystem{startPID: 5151, alive: true}
	if _, _, err := execute(t, sys, "--journal", dir, "4242", "/srv/app"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	failing := &stubSystem{chdirErr: errors.New("no such file or directory")}
	_, _, err := execute(t, failing, "--journal", dir, "4243", "/srv/missing")
	if !errors.Is(err, reboot.ErrChdir) {
		t.Fatalf("error = %v, want ErrChdir", err)
	}

	store, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	attempts, err := store.List(context.Background(), journal.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}

	byPID := map[int]model.Attempt{}
	for _, a := range attempts {
		byPID[a.TargetPID] = a
	}
	ok := byPID[4242]
	if ok.State != model.StateSucceeded || ok.NewPID != 5151 || !ok.Killed {
		t.Errorf("successful attempt = %+v", ok)
	}
	failed := byPID[4243]
	if failed.State != model.StateFailed || !strings.Contains(failed.Error, "no such file") {
		t.Errorf("failed attempt = %+v", failed)
	}
}

func TestRoot_InvalidArgsNotJournaled(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := execute(t, nil, "--journal", dir, "nope", "/srv/app"); !errors.Is(err, reboot.ErrInvalidPID) {
		t.Fatalf("error = %v, want ErrInvalidPID", err)
	}

	store, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()
	attempts, err := store.List(context.Background(), journal.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("got %d attempts, want none", len(attempts))
	}
}

func TestConfigShow_ReflectsEnv(t *testing.T) {
	t.Setenv("REBOOT_GRACE", "2s")
	out, _, err := execute(t, nil, "config", "show", "--kill-wait", "1s")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"grace: 2s", "kill_wait: 1s", "- npm", "- dev"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_RejectsNegativeGrace(t *testing.T) {
	t.Setenv("REBOOT_GRACE", "-1s")
	if _, _, err := execute(t, nil, "config", "show"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestVersion_JSON(t *testing.T) {
	out, _, err := execute(t, nil, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if info["version"] != "1.2.3" || info["commit"] != "abc123" {
		t.Errorf("info = %v", info)
	}
}

func TestVersion_Text(t *testing.T) {
	out, _, err := execute(t, nil, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "reboot 1.2.3\n") {
		t.Errorf("output = %q", out)
	}
}

func TestHistory_RequiresJournal(t *testing.T) {
	if _, _, err := execute(t, nil, "history"); !errors.Is(err, errNoJournal) {
		t.Fatalf("error = %v, want errNoJournal", err)
	}
}

func TestHistory_Output(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := execute(t, &stubSystem{startPID: 9001}, "--journal", dir, "4242", "/srv/app"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	orig := stdoutIsTerminal
	t.Cleanup(func() { stdoutIsTerminal = orig })

	t.Run("table", func(t *testing.T) {
		stdoutIsTerminal = func() bool { return true }
		out, _, err := execute(t, nil, "history", "--journal", dir)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(out, "STARTED") || !strings.Contains(out, "9001") || !strings.Contains(out, "/srv/app") {
			t.Errorf("table output:\n%s", out)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		stdoutIsTerminal = func() bool { return false }
		out, _, err := execute(t, nil, "history", "--journal", dir)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(out, "new_pid: 9001") || !strings.Contains(out, "state: succeeded") {
			t.Errorf("yaml output:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, nil, "history", "--journal", dir, "--json")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		var attempts []model.Attempt
		if err := json.Unmarshal([]byte(out), &attempts); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(attempts) != 1 || attempts[0].NewPID != 9001 {
			t.Errorf("attempts = %+v", attempts)
		}
	})

	t.Run("prune keeps json parseable", func(t *testing.T) {
		cmd := newRootCmd("1.2.3", "abc123", "2026-01-01", &stubSystem{})
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs([]string{"history", "--journal", dir, "--json", "--prune", "720h"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("history: %v", err)
		}
		var attempts []model.Attempt
		if err := json.Unmarshal(out.Bytes(), &attempts); err != nil {
			t.Fatalf("decode %q: %v", out.String(), err)
		}
		if len(attempts) != 1 {
			t.Errorf("got %d attempts, want 1", len(attempts))
		}
		if !strings.Contains(errOut.String(), "Pruned 0 attempt(s)") {
			t.Errorf("stderr = %q", errOut.String())
		}
	})

	t.Run("filter", func(t *testing.T) {
		stdoutIsTerminal = func() bool { return true }
		out, _, err := execute(t, nil, "history", "--journal", dir, "--dir", "/elsewhere")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(out, "No reboots recorded.") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestHistory_RelativeLaunchDir(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, &stubSystem{startPID: 77}, "--journal", dir, "4242", "app"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, filter := range []string{"app", filepath.Join(wd, "app")} {
		out, _, err := execute(t, nil, "history", "--journal", dir, "--json", "--dir", filter)
		if err != nil {
			t.Fatalf("history --dir %s: %v", filter, err)
		}
		var attempts []model.Attempt
		if err := json.Unmarshal([]byte(out), &attempts); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(attempts) != 1 || attempts[0].LaunchDir != filepath.Join(wd, "app") {
			t.Errorf("--dir %s: attempts = %+v", filter, attempts)
		}
	}
}
