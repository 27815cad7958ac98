package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/faucetdb/reboot/internal/journal"
)

var errNoJournal = errors.New("no journal configured (use --journal or REBOOT_JOURNAL)")

// newLogger returns the structured logger for diagnostics. Progress
// narration goes through reboot.Reporter instead.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// openJournal opens the journal in dir, which must be configured.
func openJournal(dir string) (*journal.Store, error) {
	if dir == "" {
		return nil, errNoJournal
	}
	return journal.Open(dir)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}
