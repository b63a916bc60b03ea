// Package stackerr defines the error taxonomy shared by every collapser and
// by the flame-graph renderer, so callers can branch on error kind instead
// of matching strings.
package stackerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a Error. The zero value is never produced by this package.
type Kind int

const (
	// KindIO marks an underlying read/write failure. Always fatal.
	KindIO Kind = iota + 1
	// KindParse marks a malformed record. Per-format policy decides whether
	// the caller should skip-and-log or abort.
	KindParse
	// KindUnknownFormat is returned by the guess dispatcher when no format
	// signature matched the input, and by vsprof when its fixed header row
	// is missing.
	KindUnknownFormat
	// KindIncompleteRecord is internal to the parallel collapse framework;
	// it must never escape collapse_file_parallel.
	KindIncompleteRecord
	// KindPaletteMap marks a malformed line in a persisted palette-map file.
	// The offending line is dropped and processing continues.
	KindPaletteMap
	// KindRender marks a structural rendering failure (no stacks, zero
	// total count).
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindUnknownFormat:
		return "unknown_format"
	case KindIncompleteRecord:
		return "incomplete_record"
	case KindPaletteMap:
		return "palette_map"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced across the toolkit. Every
// collapser and the renderer wrap their failures in one of these so a
// caller can do `var serr *stackerr.Error; errors.As(err, &serr)`.
type Error struct {
	Kind Kind

	// Context fields. Not all kinds populate all fields.
	Line   int
	Format string
	Path   string

	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindParse:
		return fmt.Sprintf("%s: malformed record at line %d: %v", e.Format, e.Line, e.cause)
	case KindIO:
		return fmt.Sprintf("io error (%s): %v", e.Path, e.cause)
	case KindUnknownFormat:
		return "could not determine sampler format from input"
	case KindIncompleteRecord:
		return fmt.Sprintf("chunk ended mid-record at line %d", e.Line)
	case KindPaletteMap:
		return fmt.Sprintf("palette map %s: malformed line %d: %v", e.Path, e.Line, e.cause)
	case KindRender:
		return fmt.Sprintf("render error: %v", e.cause)
	default:
		return e.cause.Error()
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, &stackerr.Error{Kind: stackerr.KindParse}) work:
// a *Error target matches when its Kind equals e's; its other fields are
// not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// IO wraps an I/O failure with context about what was being read or written.
func IO(path string, cause error) *Error {
	return &Error{Kind: KindIO, Path: path, cause: errors.WithStack(cause)}
}

// Parse builds a malformed-record error for the given format and line.
func Parse(format string, line int, cause error) *Error {
	return &Error{Kind: KindParse, Format: format, Line: line, cause: errors.WithStack(cause)}
}

// UnknownFormat is returned by the guess dispatcher.
func UnknownFormat() *Error {
	return newf(KindUnknownFormat, "unknown sampler format")
}

// IncompleteRecord marks a chunk boundary that split a record; internal to
// the parallel collapse framework only.
func IncompleteRecord(line int) *Error {
	return &Error{Kind: KindIncompleteRecord, Line: line, cause: errors.Errorf("incomplete record")}
}

// PaletteMap marks a malformed palette-map file line.
func PaletteMap(path string, line int, cause error) *Error {
	return &Error{Kind: KindPaletteMap, Path: path, Line: line, cause: errors.WithStack(cause)}
}

// Render marks a structural render failure (no stacks found, zero total).
func Render(cause error) *Error {
	return &Error{Kind: KindRender, cause: errors.WithStack(cause)}
}
