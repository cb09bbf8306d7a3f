package session

import (
	"context"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
)

// drainer is the background goroutine started by "consume".
type drainer struct {
	cancel context.CancelFunc // interrupts a pending receive
	ready  chan struct{}      // closed once the goroutine is running
	done   chan struct{}      // closed when the goroutine exits
	err    error              // hard failure, already reported; read after done
}

// consume starts the drain goroutine and returns once it is running.
// Only one may exist per session.
func (s *Session) consume(ctx context.Context) error {
	if s.consumer != nil {
		return s.fail("consume", int(unix.EBUSY), pmqerrors.ErrBusy,
			"Unable to create consumer thread: %v", pmqerrors.ErrBusy)
	}

	// Only close may stop the drainer: cancelling the session context
	// ends the command loop, and the loop's exit runs close.
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d := &drainer{cancel: cancel, ready: make(chan struct{}), done: make(chan struct{})}
	go d.run(dctx, s)
	<-d.ready

	s.consumer = d
	s.log.Verbose("consumer started on %s", s.name)
	return nil
}

// interrupt wakes a receive blocked in the drain goroutine.
func (d *drainer) interrupt() { d.cancel() }

func (d *drainer) run(ctx context.Context, s *Session) {
	defer close(d.done)
	defer d.cancel()

	r := &Receiver{s: s}
	close(d.ready)
	for {
		err := r.Once(ctx)
		if err == nil {
			continue
		}
		if !pmqerrors.IsRetryable(err) {
			d.err = err
			return
		}

		if s.isStopped() {
			d.err = d.sweep(r)
			s.log.Debug("Consumer thread is finishing.")
			return
		}

		// close joins the drainer before it closes the handle, so an
		// invalidated handle with the flag unset was not our doing.
		if pmqerrors.IsInvalidated(err) {
			d.err = s.fail("consume", CodeInvalidated, err, "Failed to receive message: %v", cause(err))
			return
		}
	}
}

// sweep prints the messages already pending when close began.
func (d *drainer) sweep(r *Receiver) error {
	for {
		err := r.Pending()
		switch {
		case err == nil:
		case pmqerrors.IsInterrupted(err):
		case pmqerrors.IsEmpty(err), pmqerrors.IsInvalidated(err):
			return nil
		default:
			return err
		}
	}
}
