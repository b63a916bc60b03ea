// Package cliutil holds the exit-code and I/O wiring shared by every
// binary in cmd/: opening the optional positional INPUT file or falling
// back to stdin, and mapping a returned error to the process exit code
// spec §6 documents (0 success, 1 I/O error, 2 parse error, 64 usage
// error).
package cliutil

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/perfdiag/flamekit/pkg/stackerr"
)

const (
	ExitOK         = 0
	ExitIOError    = 1
	ExitParseError = 2
	ExitUsageError = 64
)

// OpenInput opens path, or returns stdin when path is empty (spec §6 "All
// collapsers read stdin when INPUT is omitted"). The returned closer is a
// no-op for stdin.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, stackerr.IO(path, err)
	}
	return f, nil
}

// ExitCode maps err to the process exit code spec §6 defines. A nil error
// is success; an unrecognized error kind (including plain flag-parsing
// errors from cobra) is treated as a usage error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var serr *stackerr.Error
	if errors.As(err, &serr) {
		switch serr.Kind {
		case stackerr.KindIO:
			return ExitIOError
		case stackerr.KindParse, stackerr.KindUnknownFormat:
			return ExitParseError
		case stackerr.KindRender:
			return ExitOK
		}
	}
	return ExitUsageError
}

// Fatal prints err to stderr and returns the exit code it maps to,
// warning instead of failing for a RenderError, per spec §7's "exits 0
// with a warning to stderr" render-failure policy.
func Fatal(err error) int {
	if err == nil {
		return ExitOK
	}
	var serr *stackerr.Error
	if errors.As(err, &serr) && serr.Kind == stackerr.KindRender {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return ExitOK
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return ExitCode(err)
}
