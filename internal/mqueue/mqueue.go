// Package mqueue provides access to named, priority-ordered message
// queues.
//
// On Linux, [Queue] talks to the kernel's POSIX message queues through
// the mq_* system calls.  [Memory] is an in-process queue with the same
// ordering, blocking, and error semantics, used where no kernel queue
// is wanted (tests, embedding).
//
// Blocking operations take a context.  Cancelling it makes a pending
// Send or Receive return an error for which
// errors.IsInterrupted reports true.  Operations on a closed queue fail
// with EBADF, which errors.IsInvalidated recognises.
package mqueue

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
)

// MaxPriority is the exclusive upper bound on message priorities
// (MQ_PRIO_MAX on Linux).
const MaxPriority = 32768

// DefaultPollInterval bounds a single kernel wait when no interval is
// configured.  Cancellation is observed between waits.
const DefaultPollInterval = 100 * time.Millisecond

// Open-mode flags, re-exported so callers need not import x/sys/unix.
const (
	ReadOnly  = unix.O_RDONLY
	WriteOnly = unix.O_WRONLY
	ReadWrite = unix.O_RDWR
	Create    = unix.O_CREAT
	Exclusive = unix.O_EXCL
)

// Attr describes a queue's limits and current depth.
type Attr struct {
	Flags   int64 // O_NONBLOCK or 0
	MaxMsg  int64 // maximum number of pending messages
	MsgSize int64 // maximum size of one message in bytes
	CurMsgs int64 // messages currently pending
}

// OpenOptions controls how [Open] opens or creates a queue.
type OpenOptions struct {
	// Flags is one of ReadOnly, WriteOnly, ReadWrite, optionally OR'd
	// with Create and Exclusive.
	Flags int
	// Perm is the permission mode applied when the queue is created.
	Perm uint32
	// Attr, when non-nil, supplies MaxMsg and MsgSize for a newly
	// created queue.  Other fields are ignored.
	Attr *Attr
	// PollInterval bounds one kernel wait.  Zero means
	// DefaultPollInterval.
	PollInterval time.Duration
}

// Interface is the set of queue operations a session needs.  Both
// *Queue and *Memory implement it.
type Interface interface {
	Send(ctx context.Context, payload []byte, prio uint) error
	Receive(ctx context.Context, buf []byte) (n int, prio uint, err error)
	// TryReceive dequeues a message only if one is already pending.
	// An empty queue yields EAGAIN, which errors.IsEmpty recognises.
	TryReceive(buf []byte) (n int, prio uint, err error)
	Attr() (Attr, error)
	Close() error
}

var (
	_ Interface = (*Queue)(nil)
	_ Interface = (*Memory)(nil)
)

// kernelName validates a queue name and strips its leading slash, the
// way the C library does before handing the name to the kernel.
func kernelName(name string) (string, error) {
	if len(name) < 2 || name[0] != '/' {
		return "", unix.EINVAL
	}
	return name[1:], nil
}

// interrupted wraps a context error so that it classifies as an
// interruption.
func interrupted(op, name string, err error) error {
	return pmqerrors.Wrap(op, name, fmt.Errorf("%w: %w", pmqerrors.ErrInterrupted, err))
}
