package reboot

import (
	"fmt"
	"io"
)

// Tag prefixes every line the controller prints.
const Tag = "[reboot]"

// Reporter narrates the reboot sequence: progress to one stream, warnings
// and failures to another. A nil Reporter discards everything.
type Reporter struct {
	out    io.Writer
	errOut io.Writer
}

// NewReporter creates a Reporter writing progress to out and failures to errOut.
func NewReporter(out, errOut io.Writer) *Reporter {
	return &Reporter{out: out, errOut: errOut}
}

// Progress prints a progress line.
func (r *Reporter) Progress(format string, args ...any) {
	if r == nil || r.out == nil {
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", Tag, fmt.Sprintf(format, args...))
}

// Warn prints a non-fatal failure.
func (r *Reporter) Warn(format string, args ...any) {
	if r == nil || r.errOut == nil {
		return
	}
	fmt.Fprintf(r.errOut, "%s %s\n", Tag, fmt.Sprintf(format, args...))
}

// Error prints a fatal failure.
func (r *Reporter) Error(err error) {
	if err == nil {
		return
	}
	r.Warn("%v", err)
}
