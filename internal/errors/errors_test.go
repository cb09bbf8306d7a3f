package errors

import (
	"context"
	"fmt"
	"io"
	"testing"

	"golang.org/x/sys/unix"
)

func TestQueueError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  QueueError
		want string
	}{
		{
			name: "with queue",
			err:  QueueError{Op: "open", Queue: "/jobs", Err: unix.ENOENT},
			want: "open /jobs: no such file or directory",
		},
		{
			name: "without queue",
			err:  QueueError{Op: "receive", Err: io.EOF},
			want: "receive: EOF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueueError_Unwrap(t *testing.T) {
	err := Wrap("send", "/jobs", unix.EAGAIN)
	if !Is(err, unix.EAGAIN) {
		t.Error("should unwrap to EAGAIN")
	}
}

func TestCommandError(t *testing.T) {
	inner := fmt.Errorf("bad priority")
	err := Command("send", 1, inner)
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
	if got := ExitCode(err); got != 1 {
		t.Errorf("ExitCode = %d, want 1", got)
	}
	wrapped := fmt.Errorf("session: %w", Command("receive", 2, io.ErrShortWrite))
	if got := ExitCode(wrapped); got != 2 {
		t.Errorf("ExitCode(wrapped) = %d, want 2", got)
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "permissions",
				Value:   "999",
				Message: "not an octal mode",
				Hint:    "use e.g. 0600",
			},
			want: "config: --permissions=999: not an octal mode\n  hint: use e.g. 0600",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "msgsize",
				Message: "required with --maxmsg",
			},
			want: "config: --msgsize: required with --maxmsg",
		},
		{
			name: "no field",
			err:  ConfigError{Message: "queue name required"},
			want: "config: queue name required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		interrupted bool
		invalidated bool
	}{
		{"nil", nil, false, false},
		{"eintr", Wrap("receive", "/q", unix.EINTR), true, false},
		{"cancelled", fmt.Errorf("wait: %w", context.Canceled), true, false},
		{"sentinel interrupted", ErrInterrupted, true, false},
		{"ebadf", Wrap("receive", "/q", unix.EBADF), false, true},
		{"closed", ErrClosed, false, true},
		{"emsgsize", Wrap("receive", "/q", unix.EMSGSIZE), false, false},
		{"plain", io.EOF, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInterrupted(tt.err); got != tt.interrupted {
				t.Errorf("IsInterrupted() = %v, want %v", got, tt.interrupted)
			}
			if got := IsInvalidated(tt.err); got != tt.invalidated {
				t.Errorf("IsInvalidated() = %v, want %v", got, tt.invalidated)
			}
			if got := IsRetryable(tt.err); got != (tt.interrupted || tt.invalidated) {
				t.Errorf("IsRetryable() = %v", got)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(Wrap("receive", "/q", unix.EAGAIN)) {
		t.Error("EAGAIN should mean empty")
	}
	for _, err := range []error{nil, Wrap("receive", "/q", unix.EBADF), unix.ETIMEDOUT} {
		if IsEmpty(err) {
			t.Errorf("IsEmpty(%v) = true", err)
		}
	}
	if IsRetryable(Wrap("receive", "/q", unix.EAGAIN)) {
		t.Error("an empty queue is not an interruption")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"errno", Wrap("getattr", "/q", unix.EBADF), int(unix.EBADF)},
		{"config", &ConfigError{Message: "x", Code: 5}, 5},
		{"plain", io.EOF, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSentinels(t *testing.T) {
	// Verify sentinel errors are distinct.
	sentinels := []error{ErrClosed, ErrBusy, ErrInterrupted, ErrUnsupported}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
