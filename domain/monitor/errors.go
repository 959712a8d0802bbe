package monitor

import (
	"errors"
	"fmt"
)

// Usage errors returned synchronously from Start/Stop. They indicate caller
// misuse and are never reported through the event callbacks.
var (
	ErrAlreadyRunning = errors.New("monitor: already running")
	ErrNotRunning     = errors.New("monitor: not running")
)

// Transient per-cycle error categories. Capture and detector implementations
// wrap these so the controller and its callers can classify failures with
// errors.Is.
var (
	ErrCaptureFailed = errors.New("monitor: capture failed")
	ErrDetectFailed  = errors.New("monitor: detection failed")
)

// AbortError is delivered through OnFatal when the consecutive-failure
// ceiling is exceeded. It wraps the last cycle error.
type AbortError struct {
	Failures int
	Last     error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("monitor: aborted after %d consecutive cycle failures: %v", e.Failures, e.Last)
}

func (e *AbortError) Unwrap() error { return e.Last }
