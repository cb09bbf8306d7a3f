// Package errors provides domain-specific error types for pmq.
//
// These types carry structured context (operation, queue name, exit
// code) that helps callers decide how to handle failures and provides
// better diagnostics than plain string wrapping.
package errors

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrClosed      = errors.New("queue is closed")
	ErrBusy        = errors.New("consumer is already running")
	ErrInterrupted = errors.New("operation interrupted")
	ErrUnsupported = errors.New("message queues are not supported on this platform")
)

// ── Structured error types ───────────────────────────────────────────

// QueueError represents a failure in a message queue operation.
type QueueError struct {
	Op    string // operation: "open", "send", "receive", "getattr", "close", "unlink"
	Queue string // queue name
	Err   error  // underlying error, usually a unix.Errno
}

func (e *QueueError) Error() string {
	if e.Queue == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Queue, e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }

// CommandError is returned by a session command handler.  The
// diagnostic describing it has already been written by the time it is
// returned; Code is the process exit code it maps to.
type CommandError struct {
	Command string
	Code    int
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s (code %d): %v", e.Command, e.Code, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
	Code    int         // exit code (1 when zero)
}

func (e *ConfigError) Error() string {
	msg := "config: "
	if e.Field != "" {
		msg += "--" + e.Field
		if e.Value != nil {
			msg += fmt.Sprintf("=%v", e.Value)
		}
		msg += ": "
	}
	msg += e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a QueueError.
func Wrap(op, queue string, err error) *QueueError {
	return &QueueError{Op: op, Queue: queue, Err: err}
}

// Command creates a CommandError with the given exit code.
func Command(command string, code int, err error) *CommandError {
	return &CommandError{Command: command, Code: code, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsInterrupted reports whether err means a blocking call was cut short
// by an external event rather than failing: EINTR, or cancellation of
// the context the call was waiting under.
func IsInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.EINTR) ||
		errors.Is(err, ErrInterrupted) ||
		errors.Is(err, context.Canceled)
}

// IsInvalidated reports whether err means the queue handle became
// unusable mid-call, e.g. because it was closed concurrently.
func IsInvalidated(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.EBADF) || errors.Is(err, ErrClosed)
}

// IsEmpty reports whether err means a non-blocking receive found no
// pending message.
func IsEmpty(err error) bool {
	return err != nil && errors.Is(err, unix.EAGAIN)
}

// IsRetryable reports whether a receive that failed with err is worth
// another attempt after the caller re-checks its shutdown state.
func IsRetryable(err error) bool {
	return IsInterrupted(err) || IsInvalidated(err)
}

// Errno extracts the operating-system error number from err, or 0.
func Errno(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

// ExitCode maps err to a process exit code.  nil maps to 0, a
// CommandError or ConfigError to its code, an errno-carrying error to
// the errno, and anything else to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *CommandError
	if errors.As(err, &ce) && ce.Code != 0 {
		return ce.Code
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Code != 0 {
		return cfgErr.Code
	}
	if n := Errno(err); n != 0 {
		return n
	}
	return 1
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use pmq/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
