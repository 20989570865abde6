// Package apperr defines the error kinds returned by the timesheet engine.
//
// Callers classify errors with errors.Is against the sentinel kinds and
// errors.As for the typed errors that carry extra context.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrOverlap      = errors.New("overlap conflict")
	ErrCaptureParse = errors.New("capture parse error")
	ErrStore        = errors.New("internal storage error")
)

// ErrStaleVersion is returned by stores when a DayLog was written by someone
// else since it was read. It is internal: callers re-read and retry.
var ErrStaleVersion = errors.New("stale day log version")

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// Validation returns an ErrValidation with a caller-facing message.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound with a caller-facing message.
func NotFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Interval is the minimal view of a time interval reported in conflicts.
type Interval interface {
	String() string
}

// OverlapConflictError reports that Candidate overlaps Conflicting.
type OverlapConflictError struct {
	Candidate   Interval
	Conflicting Interval
}

func (e *OverlapConflictError) Error() string {
	return fmt.Sprintf("interval %s overlaps existing interval %s", e.Candidate, e.Conflicting)
}

func (e *OverlapConflictError) Is(target error) bool { return target == ErrOverlap }

// CaptureParseError reports a capture reference without an embedded timestamp.
type CaptureParseError struct {
	Reference string
}

func (e *CaptureParseError) Error() string {
	return fmt.Sprintf("no YYYY-MM-DD_HH-MM-SS_ timestamp in capture reference %q", e.Reference)
}

func (e *CaptureParseError) Is(target error) bool { return target == ErrCaptureParse }

// StoreError wraps a persistence failure. Its message never includes the
// cause; use Unwrap (or log Cause) for the internal detail.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string { return ErrStore.Error() }

func (e *StoreError) Unwrap() error { return e.Cause }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Store wraps err as a StoreError for operation op. A nil err stays nil and
// an error that already is a StoreError is returned unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Cause: err}
}

// IsCallerError reports whether err is deterministic and caller-actionable.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOverlap) || errors.Is(err, ErrCaptureParse)
}
