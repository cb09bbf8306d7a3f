//go:build linux

package mqueue

import (
	"context"
	"errors"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
)

// mqAttr mirrors struct mq_attr.  C long is Go int on every Linux
// target Go supports.
type mqAttr struct {
	flags    int
	maxmsg   int
	msgsize  int
	curmsgs  int
	reserved [4]int
}

// Queue is an open POSIX message queue descriptor.
//
// Send, Receive and Attr may be called concurrently.  Close takes the
// descriptor exclusively: it waits for in-flight kernel waits (each at
// most one poll interval long) so the descriptor number is never reused
// underneath a running call.
type Queue struct {
	name string
	poll time.Duration

	mu     sync.RWMutex
	fd     int
	closed bool
}

// Open opens, and optionally creates, the named queue.
func Open(name string, opts OpenOptions) (*Queue, error) {
	kname, err := kernelName(name)
	if err != nil {
		return nil, pmqerrors.Wrap("open", name, err)
	}
	p, err := unix.BytePtrFromString(kname)
	if err != nil {
		return nil, pmqerrors.Wrap("open", name, err)
	}

	var attr *mqAttr
	if opts.Attr != nil {
		attr = &mqAttr{
			maxmsg:  int(opts.Attr.MaxMsg),
			msgsize: int(opts.Attr.MsgSize),
		}
	}

	fd, _, errno := unix.Syscall6(unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(p)),
		uintptr(opts.Flags),
		uintptr(opts.Perm),
		uintptr(unsafe.Pointer(attr)),
		0, 0)
	if errno != 0 {
		return nil, pmqerrors.Wrap("open", name, errno)
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Queue{name: name, poll: poll, fd: int(fd)}, nil
}

// Unlink removes the named queue.  Open descriptors stay usable until
// closed.
func Unlink(name string) error {
	kname, err := kernelName(name)
	if err != nil {
		return pmqerrors.Wrap("unlink", name, err)
	}
	p, err := unix.BytePtrFromString(kname)
	if err != nil {
		return pmqerrors.Wrap("unlink", name, err)
	}
	_, _, errno := unix.Syscall(unix.SYS_MQ_UNLINK, uintptr(unsafe.Pointer(p)), 0, 0)
	if errno != 0 {
		return pmqerrors.Wrap("unlink", name, errno)
	}
	return nil
}

// Name returns the name the queue was opened with.
func (q *Queue) Name() string { return q.name }

// Send enqueues payload with the given priority, blocking while the
// queue is full.  EINTR is returned to the caller, not retried.
func (q *Queue) Send(ctx context.Context, payload []byte, prio uint) error {
	for {
		if err := ctx.Err(); err != nil {
			return interrupted("send", q.name, err)
		}
		err := q.sendOnce(payload, prio)
		if errors.Is(err, unix.ETIMEDOUT) {
			continue
		}
		if err != nil {
			return pmqerrors.Wrap("send", q.name, err)
		}
		return nil
	}
}

func (q *Queue) sendOnce(payload []byte, prio uint) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return unix.EBADF
	}

	var p unsafe.Pointer
	if len(payload) > 0 {
		p = unsafe.Pointer(&payload[0])
	}
	ts := q.deadline()
	_, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDSEND,
		uintptr(q.fd),
		uintptr(p),
		uintptr(len(payload)),
		uintptr(prio),
		uintptr(unsafe.Pointer(&ts)),
		0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Receive dequeues the highest-priority message into buf, blocking
// while the queue is empty.  buf must be at least the queue's MsgSize
// long or the kernel rejects the call with EMSGSIZE.
func (q *Queue) Receive(ctx context.Context, buf []byte) (int, uint, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, interrupted("receive", q.name, err)
		}
		n, prio, err := q.receiveOnce(buf, q.deadline())
		if errors.Is(err, unix.ETIMEDOUT) {
			continue
		}
		if err != nil {
			return 0, 0, pmqerrors.Wrap("receive", q.name, err)
		}
		return n, prio, nil
	}
}

// TryReceive dequeues the highest-priority pending message without
// waiting.  The kernel is given a deadline in the past, so an empty
// queue times out at once; that is reported as EAGAIN.
func (q *Queue) TryReceive(buf []byte) (int, uint, error) {
	n, prio, err := q.receiveOnce(buf, unix.Timespec{})
	if errors.Is(err, unix.ETIMEDOUT) {
		err = unix.EAGAIN
	}
	if err != nil {
		return 0, 0, pmqerrors.Wrap("receive", q.name, err)
	}
	return n, prio, nil
}

func (q *Queue) receiveOnce(buf []byte, ts unix.Timespec) (int, uint, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return 0, 0, unix.EBADF
	}

	var p unsafe.Pointer
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	var prio uint32
	n, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDRECEIVE,
		uintptr(q.fd),
		uintptr(p),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&prio)),
		uintptr(unsafe.Pointer(&ts)),
		0)
	if errno != 0 {
		return 0, 0, errno
	}
	return int(n), uint(prio), nil
}

// Attr returns the queue's current attributes.
func (q *Queue) Attr() (Attr, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return Attr{}, pmqerrors.Wrap("getattr", q.name, unix.EBADF)
	}

	var a mqAttr
	_, _, errno := unix.Syscall(unix.SYS_MQ_GETSETATTR,
		uintptr(q.fd),
		0,
		uintptr(unsafe.Pointer(&a)))
	if errno != 0 {
		return Attr{}, pmqerrors.Wrap("getattr", q.name, errno)
	}
	return Attr{
		Flags:   int64(a.flags),
		MaxMsg:  int64(a.maxmsg),
		MsgSize: int64(a.msgsize),
		CurMsgs: int64(a.curmsgs),
	}, nil
}

// Close releases the descriptor.  A second Close fails with EBADF.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return pmqerrors.Wrap("close", q.name, unix.EBADF)
	}
	q.closed = true
	if err := unix.Close(q.fd); err != nil {
		return pmqerrors.Wrap("close", q.name, err)
	}
	return nil
}

// deadline returns the absolute CLOCK_REALTIME timeout for one wait.
func (q *Queue) deadline() unix.Timespec {
	return unix.NsecToTimespec(time.Now().Add(q.poll).UnixNano())
}
