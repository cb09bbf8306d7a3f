//go:build !linux

package mqueue

import (
	"context"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
)

// Queue is unavailable on this platform; Open always fails.
type Queue struct {
	name string
}

// Open reports ENOSYS: only Linux exposes POSIX queues as descriptors.
func Open(name string, _ OpenOptions) (*Queue, error) {
	return nil, pmqerrors.Wrap("open", name, pmqerrors.Join(pmqerrors.ErrUnsupported, unix.ENOSYS))
}

// Unlink reports ENOSYS.
func Unlink(name string) error {
	return pmqerrors.Wrap("unlink", name, pmqerrors.Join(pmqerrors.ErrUnsupported, unix.ENOSYS))
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) Send(context.Context, []byte, uint) error {
	return pmqerrors.Wrap("send", q.name, unix.EBADF)
}

func (q *Queue) Receive(context.Context, []byte) (int, uint, error) {
	return 0, 0, pmqerrors.Wrap("receive", q.name, unix.EBADF)
}

func (q *Queue) TryReceive([]byte) (int, uint, error) {
	return 0, 0, pmqerrors.Wrap("receive", q.name, unix.EBADF)
}

func (q *Queue) Attr() (Attr, error) {
	return Attr{}, pmqerrors.Wrap("getattr", q.name, unix.EBADF)
}

func (q *Queue) Close() error {
	return pmqerrors.Wrap("close", q.name, unix.EBADF)
}
