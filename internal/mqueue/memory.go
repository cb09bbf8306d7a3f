package mqueue

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
)

type memMsg struct {
	prio uint
	data []byte
}

// Memory is an in-process priority queue with kernel-queue semantics:
// highest priority first, FIFO among equal priorities, Send blocks while
// full, Receive blocks while empty, and every operation after Close
// fails with EBADF.  A Receive blocked when Close is called wakes up
// with EBADF.
type Memory struct {
	name    string
	maxMsg  int64
	msgSize int64

	mu      sync.Mutex
	msgs    []memMsg // descending priority, FIFO within a priority
	closed  bool
	changed chan struct{}
}

// NewMemory returns an empty queue holding at most maxMsg messages of
// at most msgSize bytes each.
func NewMemory(name string, maxMsg, msgSize int64) *Memory {
	return &Memory{
		name:    name,
		maxMsg:  maxMsg,
		msgSize: msgSize,
		changed: make(chan struct{}),
	}
}

// Name returns the queue's name.
func (m *Memory) Name() string { return m.name }

// Send enqueues a copy of payload.
func (m *Memory) Send(ctx context.Context, payload []byte, prio uint) error {
	for {
		m.mu.Lock()
		switch {
		case m.closed:
			m.mu.Unlock()
			return pmqerrors.Wrap("send", m.name, unix.EBADF)
		case int64(len(payload)) > m.msgSize:
			m.mu.Unlock()
			return pmqerrors.Wrap("send", m.name, unix.EMSGSIZE)
		case prio >= MaxPriority:
			m.mu.Unlock()
			return pmqerrors.Wrap("send", m.name, unix.EINVAL)
		}

		if int64(len(m.msgs)) < m.maxMsg {
			i := slices.IndexFunc(m.msgs, func(msg memMsg) bool { return msg.prio < prio })
			if i < 0 {
				i = len(m.msgs)
			}
			m.msgs = slices.Insert(m.msgs, i, memMsg{prio: prio, data: slices.Clone(payload)})
			m.notifyLocked()
			m.mu.Unlock()
			return nil
		}

		wait := m.changed
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return interrupted("send", m.name, ctx.Err())
		case <-wait:
		}
	}
}

// Receive dequeues the highest-priority message into buf.
func (m *Memory) Receive(ctx context.Context, buf []byte) (int, uint, error) {
	for {
		m.mu.Lock()
		n, prio, err := m.takeLocked(buf)
		if !pmqerrors.IsEmpty(err) {
			m.mu.Unlock()
			return n, prio, err
		}

		wait := m.changed
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return 0, 0, interrupted("receive", m.name, ctx.Err())
		case <-wait:
		}
	}
}

// TryReceive dequeues the highest-priority message if one is pending.
func (m *Memory) TryReceive(buf []byte) (int, uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeLocked(buf)
}

func (m *Memory) takeLocked(buf []byte) (int, uint, error) {
	switch {
	case m.closed:
		return 0, 0, pmqerrors.Wrap("receive", m.name, unix.EBADF)
	case int64(len(buf)) < m.msgSize:
		return 0, 0, pmqerrors.Wrap("receive", m.name, unix.EMSGSIZE)
	case len(m.msgs) == 0:
		return 0, 0, pmqerrors.Wrap("receive", m.name, unix.EAGAIN)
	}
	msg := m.msgs[0]
	m.msgs = slices.Delete(m.msgs, 0, 1)
	m.notifyLocked()
	return copy(buf, msg.data), msg.prio, nil
}

// Attr returns the queue's limits and depth.
func (m *Memory) Attr() (Attr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Attr{}, pmqerrors.Wrap("getattr", m.name, unix.EBADF)
	}
	return Attr{
		MaxMsg:  m.maxMsg,
		MsgSize: m.msgSize,
		CurMsgs: int64(len(m.msgs)),
	}, nil
}

// Close marks the queue closed and wakes every blocked caller.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return pmqerrors.Wrap("close", m.name, unix.EBADF)
	}
	m.closed = true
	m.notifyLocked()
	return nil
}

func (m *Memory) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}
