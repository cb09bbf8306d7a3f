package mqueue

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
)

func TestMemory_PriorityOrder(t *testing.T) {
	q := NewMemory("/order", 10, 16)
	ctx := context.Background()

	sends := []struct {
		prio    uint
		payload string
	}{
		{1, "low"},
		{5, "high-a"},
		{3, "mid"},
		{5, "high-b"},
		{0, "lowest"},
	}
	for _, s := range sends {
		if err := q.Send(ctx, []byte(s.payload), s.prio); err != nil {
			t.Fatalf("Send(%q): %v", s.payload, err)
		}
	}

	want := []string{"high-a", "high-b", "mid", "low", "lowest"}
	buf := make([]byte, 16)
	for _, w := range want {
		n, _, err := q.Receive(ctx, buf)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if got := string(buf[:n]); got != w {
			t.Errorf("got %q, want %q", got, w)
		}
	}
}

func TestMemory_Attr(t *testing.T) {
	q := NewMemory("/attr", 4, 32)
	for i := 0; i < 3; i++ {
		if err := q.Send(context.Background(), []byte("x"), 0); err != nil {
			t.Fatal(err)
		}
	}
	a, err := q.Attr()
	if err != nil {
		t.Fatal(err)
	}
	if a.MaxMsg != 4 || a.MsgSize != 32 || a.CurMsgs != 3 {
		t.Errorf("unexpected attr: %+v", a)
	}
}

func TestMemory_Limits(t *testing.T) {
	q := NewMemory("/limits", 1, 4)
	ctx := context.Background()

	if err := q.Send(ctx, []byte("too long"), 0); !pmqerrors.Is(err, unix.EMSGSIZE) {
		t.Errorf("oversize send: got %v, want EMSGSIZE", err)
	}
	if err := q.Send(ctx, []byte("ok"), MaxPriority); !pmqerrors.Is(err, unix.EINVAL) {
		t.Errorf("priority out of range: got %v, want EINVAL", err)
	}
	if _, _, err := q.Receive(ctx, make([]byte, 2)); !pmqerrors.Is(err, unix.EMSGSIZE) {
		t.Errorf("short buffer: got %v, want EMSGSIZE", err)
	}
}

func TestMemory_ReceiveBlocksUntilSend(t *testing.T) {
	q := NewMemory("/block", 1, 8)

	type result struct {
		n    int
		prio uint
		err  error
	}
	done := make(chan result, 1)
	buf := make([]byte, 8)
	go func() {
		n, prio, err := q.Receive(context.Background(), buf)
		done <- result{n, prio, err}
	}()

	select {
	case <-done:
		t.Fatal("Receive returned on an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Send(context.Background(), []byte("wake"), 7); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-done:
		if r.err != nil || r.prio != 7 || string(buf[:r.n]) != "wake" {
			t.Errorf("got (%d, %d, %v)", r.n, r.prio, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not wake")
	}
}

func TestMemory_SendBlocksWhileFull(t *testing.T) {
	q := NewMemory("/full", 1, 8)
	ctx := context.Background()
	if err := q.Send(ctx, []byte("a"), 0); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Send(ctx, []byte("b"), 0) }()

	select {
	case err := <-done:
		t.Fatalf("Send returned on a full queue: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, _, err := q.Receive(ctx, make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not wake")
	}
}

func TestMemory_CancelInterrupts(t *testing.T) {
	q := NewMemory("/cancel", 1, 8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := q.Receive(ctx, make([]byte, 8))
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !pmqerrors.IsInterrupted(err) {
			t.Errorf("got %v, want interruption", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive ignored cancellation")
	}
}

func TestMemory_CloseInvalidatesBlockedReceive(t *testing.T) {
	q := NewMemory("/close", 1, 8)

	done := make(chan error, 1)
	go func() {
		_, _, err := q.Receive(context.Background(), make([]byte, 8))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-done:
		if !pmqerrors.IsInvalidated(err) {
			t.Errorf("got %v, want EBADF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not observe Close")
	}

	if err := q.Close(); !pmqerrors.Is(err, unix.EBADF) {
		t.Errorf("second Close: got %v, want EBADF", err)
	}
	if _, err := q.Attr(); !pmqerrors.Is(err, unix.EBADF) {
		t.Errorf("Attr after Close: got %v, want EBADF", err)
	}
}

func TestMemory_TryReceive(t *testing.T) {
	m := NewMemory("/try", 4, 16)
	buf := make([]byte, 16)

	if _, _, err := m.TryReceive(buf); !pmqerrors.IsEmpty(err) {
		t.Fatalf("empty queue: err = %v, want EAGAIN", err)
	}

	if err := m.Send(context.Background(), []byte("low"), 1); err != nil {
		t.Fatal(err)
	}
	if err := m.Send(context.Background(), []byte("high"), 9); err != nil {
		t.Fatal(err)
	}
	n, prio, err := m.TryReceive(buf)
	if err != nil || prio != 9 || string(buf[:n]) != "high" {
		t.Errorf("TryReceive = (%d, %q, %v), want (9, high)", prio, buf[:n], err)
	}

	m.Close() //nolint:errcheck
	if _, _, err := m.TryReceive(buf); !pmqerrors.IsInvalidated(err) {
		t.Errorf("after Close: err = %v, want EBADF", err)
	}
}
