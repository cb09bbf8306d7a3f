package session

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"

	pmqerrors "pmq/internal/errors"
	"pmq/internal/mqueue"
	"pmq/util"
)

// send reads "<priority> <size>", one separator byte, and size raw
// bytes, then enqueues them.
func (s *Session) send(ctx context.Context) error {
	tok, err := s.in.Token()
	prio, perr := strconv.ParseUint(tok, 10, 32)
	if err != nil || perr != nil {
		return s.fail("send", CodeSendPriority, pmqerrors.Join(err, perr),
			`Unable to read message priority from "send" command.`)
	}

	tok, err = s.in.Token()
	size, serr := strconv.ParseInt(tok, 10, 64)
	if err != nil || serr != nil {
		return s.fail("send", CodeSendSize, pmqerrors.Join(err, serr),
			`Unable to read message size from "send" command.`)
	}
	if size < 0 {
		return s.fail("send", CodeSendNegative, fmt.Errorf("negative size %d", size),
			"Messages must have a non-negative size. Size %d is not permitted.", size)
	}

	s.in.SkipByte()

	// Larger than the queue accepts: consume it to keep the stream in
	// step, but never buffer it.
	if size > s.msgSize {
		n, err := s.in.Discard(size)
		if n != size {
			return s.shortPayload(size, n, err)
		}
		err = pmqerrors.Wrap("send", s.name, unix.EMSGSIZE)
		return s.fail("send", CodeSendFailed, err,
			`Unable to send message for "send" command: %v`, unix.EMSGSIZE)
	}

	buf := util.GetBuf(int(size))
	defer util.PutBuf(buf)
	payload := *buf

	if n, err := s.in.ReadFull(payload); int64(n) != size {
		return s.shortPayload(size, int64(n), err)
	}

	for {
		err := s.queue.Send(ctx, payload, uint(prio))
		if err == nil {
			break
		}
		if pmqerrors.IsInterrupted(err) {
			s.stats.Interrupted()
			if ctx.Err() != nil {
				s.log.Warn("send of a %d byte message interrupted; ending session", size)
				return errStop
			}
			continue
		}
		return s.fail("send", CodeSendFailed, err,
			`Unable to send message for "send" command: %v`, cause(err))
	}
	s.stats.MessageSent(int(size))

	line := strconv.AppendInt([]byte("ack "), size, 10)
	if err := s.writeOut(append(line, '\n')); err != nil {
		return s.writeFailed(err)
	}
	return nil
}

func (s *Session) shortPayload(want, got int64, err error) error {
	return s.fail("send", CodeSendShort, pmqerrors.Join(fmt.Errorf("short payload"), err),
		"Unable to read from input all of the supposed %d byte message. %d were read instead.",
		want, got)
}

// receive prints one message, waiting for it if the queue is empty.
// Interruptions are retried; cancellation of ctx ends the session
// quietly so that close decides the exit code.
func (s *Session) receive(ctx context.Context) error {
	for {
		err := s.recv.Once(ctx)
		switch {
		case err == nil:
			return nil
		case pmqerrors.IsInterrupted(err):
			if ctx.Err() != nil {
				s.log.Warn("receive interrupted; ending session")
				return errStop
			}
		case pmqerrors.IsInvalidated(err):
			return s.fail("receive", CodeInvalidated, err,
				"Failed to receive message: %v", cause(err))
		default:
			return err
		}
	}
}

func (s *Session) count(context.Context) error {
	return s.report("count", "query message count", func(a mqueue.Attr) int64 { return a.CurMsgs })
}

func (s *Session) msgsize(context.Context) error {
	return s.report("msgsize", "report msgsize", func(a mqueue.Attr) int64 { return a.MsgSize })
}

func (s *Session) maxmsg(context.Context) error {
	return s.report("maxmsg", "report maxmsg", func(a mqueue.Attr) int64 { return a.MaxMsg })
}

// report prints "<verb> <N>" for one attribute.
func (s *Session) report(verb, purpose string, field func(mqueue.Attr) int64) error {
	attr, err := s.queue.Attr()
	if err != nil {
		return s.fail(verb, pmqerrors.ExitCode(err), err,
			"Unable to get queue attributes to %s: %v", purpose, cause(err))
	}

	line := append([]byte(verb), ' ')
	line = strconv.AppendInt(line, field(attr), 10)
	line = append(line, '\n')
	if err := s.writeOut(line); err != nil {
		return s.writeFailed(err)
	}
	return nil
}

// cause strips the operation context from a queue error so that
// diagnostics show the operating system's text.
func cause(err error) error {
	var qe *pmqerrors.QueueError
	if pmqerrors.As(err, &qe) {
		return qe.Err
	}
	return err
}

func (s *Session) writeFailed(err error) error {
	return s.fail("write", CodeWriteFailed, err, "Failed to write output: %v", err)
}

// close marks the session stopped, stops the drain goroutine, and
// closes the queue.  It runs exactly once, after the command loop.
//
// The drainer is joined before the handle is closed: once woken it
// prints every message still pending, so a message enqueued before
// close is never stranded by a handle closed under the consumer.
func (s *Session) close() error {
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	if s.consumer != nil {
		s.consumer.interrupt()
		<-s.consumer.done
	}

	if err := s.queue.Close(); err != nil {
		return s.fail("close", pmqerrors.ExitCode(err), err,
			"Unable to close the message queue: %v", cause(err))
	}
	return nil
}
