// Package errors provides centralized error definitions and error handling
// utilities for the swarmgate codebase. It defines domain-specific errors for
// the pipeline subsystems, semantic error types, and classification helpers.
//
// The pipeline distinguishes four kinds of failure:
//   - Transport errors: the queue substrate or state store is unreachable.
//     Loops log these and retry on the next cycle.
//   - Execution errors: a task handler or the generation capability failed.
//     Workers convert these into a TaskResult error field, never a panic.
//   - Timeouts: a bounded operation exceeded its deadline.
//   - Generation errors: the external text-generation provider failed.
//     Callers must tolerate these and default gracefully.
//
// Validation rejection is deliberately NOT an error: the judge models it as a
// first-class decision outcome.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library functions for convenience, so callers can
// import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// ErrQueueClosed indicates an operation on a closed queue broker.
var ErrQueueClosed = New("queue broker is closed")

// Execution sentinel errors.
var (
	// ErrUnknownTaskType indicates a task kind no worker handler accepts.
	ErrUnknownTaskType = New("unknown task type")
	// ErrExecutionTimeout indicates per-task execution exceeded its deadline.
	// The worker synthesizes a TaskResult carrying this message; the judge
	// must still see the task's fate.
	ErrExecutionTimeout = New("execution timeout")
)

// TransportError wraps a failure to reach the queue substrate or state store.
// Transport errors are retryable: the owning loop logs them and continues.
type TransportError struct {
	Op  string // operation that failed, e.g. "push", "blocking_pop"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError creates a TransportError for the given operation.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// GenerationError indicates the external text-generation provider failed.
// Per contract, callers default gracefully rather than failing the pipeline
// (the judge's persona check falls back to a neutral 0.5 score).
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError wraps a provider failure.
func NewGenerationError(err error) *GenerationError {
	return &GenerationError{Err: err}
}

// TimeoutError indicates an operation exceeded its wall-clock budget. It
// wraps the sentinel that names the budget, so Is still matches the cause.
type TimeoutError struct {
	Err     error
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v after %s", e.Err, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NewTimeoutError wraps err with the budget that was exceeded.
func NewTimeoutError(err error, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Err: err, Timeout: timeout}
}

// IsRetryable reports whether the error is transient and the operation may
// succeed on a later cycle. Transport failures and timeouts are retryable;
// execution and generation failures are terminal for their task.
func IsRetryable(err error) bool {
	var te *TransportError
	if As(err, &te) {
		return true
	}
	var to *TimeoutError
	return As(err, &to)
}

// IsGeneration reports whether the error originated in the text-generation
// provider.
func IsGeneration(err error) bool {
	var ge *GenerationError
	return As(err, &ge)
}
