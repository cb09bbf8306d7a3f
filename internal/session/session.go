// Package session runs the command protocol against one open message
// queue.
//
// A Session reads whitespace-delimited verbs from its input and answers
// on its output:
//
//	send <priority> <size> <payload>   →  ack <size>
//	receive                            →  <priority> <size> <payload>
//	consume                            →  (background) one line per message
//	count | msgsize | maxmsg           →  <verb> <N>
//	close                              →  ends the session
//
// Up to two goroutines use the queue: the dispatcher running Serve and,
// after "consume", one drain goroutine.  Every output line is written
// with a single write under the output lock, and every diagnostic goes
// through the logger, whose own mutex serialises stderr.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	pmqerrors "pmq/internal/errors"
	"pmq/internal/metrics"
	"pmq/internal/mqueue"
	"pmq/util"
)

// Exit codes reported by command handlers.
const (
	CodeUnknownCommand = 1
	CodeBadInput       = 1

	CodeSendPriority = 1
	CodeSendSize     = 2
	CodeSendFailed   = 3
	CodeSendNegative = 4
	CodeSendShort    = 5

	CodeReceiveFailed = 1
	CodeWriteFailed   = 2
	CodeAllocFailed   = 3
	CodeInvalidated   = 4
)

// errStop ends the command loop without a result of its own; the
// session then exits with the close handler's result.
var errStop = pmqerrors.New("session stopped")

// Options configures a Session.
type Options struct {
	// Name is the queue name, used in diagnostics only.
	Name string

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Session is the state shared by the dispatcher and the drain
// goroutine.
type Session struct {
	queue   mqueue.Interface
	name    string
	msgSize int64 // fixed at construction from the queue's attributes

	in    *tokenReader
	out   io.Writer
	outMu sync.Mutex // serialises writes to out

	log   *util.Logger // its mutex serialises diagnostics
	stats *metrics.Collector

	stopMu  sync.Mutex
	stopped bool

	recv     *Receiver // foreground receiver, reused across "receive"
	consumer *drainer  // set once "consume" succeeds
}

// New reads the queue's attributes and returns a Session ready to
// Serve.  The session owns q from here on and closes it exactly once.
func New(q mqueue.Interface, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}

	attr, err := q.Attr()
	if err != nil {
		logger.Error("Unable to get queue attributes initially: %v", err)
		return nil, pmqerrors.Command("getattr", pmqerrors.ExitCode(err), err)
	}
	logger.Debug("Got the following attributes for message queue %q: mq_maxmsg=%d mq_msgsize=%d mq_curmsgs=%d",
		opts.Name, attr.MaxMsg, attr.MsgSize, attr.CurMsgs)

	in := opts.Stdin
	if in == nil {
		in = os.Stdin
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	s := &Session{
		queue:   q,
		name:    opts.Name,
		msgSize: attr.MsgSize,
		in:      newTokenReader(in),
		out:     out,
		log:     logger,
		stats:   opts.Metrics,
	}
	s.recv = &Receiver{s: s}
	return s, nil
}

// Serve runs the command loop until "close", end of input, a failing
// command, or cancellation of ctx.  The drain goroutine (if any) is then
// stopped and the queue closed, and the first command failure, or else
// the close failure, is returned.
func (s *Session) Serve(ctx context.Context) error {
	result := s.loop(ctx)
	closeErr := s.close()

	s.log.Verbose("session statistics: %s", s.stats.JSON())

	if result != nil {
		return result
	}
	return closeErr
}

func (s *Session) loop(ctx context.Context) error {
	for ctx.Err() == nil {
		verb, err := s.in.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return s.fail("input", CodeBadInput, err, "Unable to read command: %v", err)
		}

		if verb == "close" {
			return nil // handled after the loop
		}

		handler := s.handler(verb)
		if handler == nil {
			return s.fail(verb, CodeUnknownCommand, fmt.Errorf("unknown command %q", verb),
				"Unknown command %q", verb)
		}

		if err := handler(ctx); err != nil {
			if pmqerrors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Session) handler(verb string) func(context.Context) error {
	switch verb {
	case "send":
		return s.send
	case "receive":
		return s.receive
	case "consume":
		return s.consume
	case "count":
		return s.count
	case "msgsize":
		return s.msgsize
	case "maxmsg":
		return s.maxmsg
	}
	return nil
}

// isStopped reports whether close has begun.
func (s *Session) isStopped() bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.stopped
}

// writeOut writes p with one WriteFull under the output lock.
func (s *Session) writeOut(p []byte) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, err := util.WriteFull(s.out, p)
	return err
}

// fail writes one diagnostic line and returns the matching
// CommandError.
func (s *Session) fail(command string, code int, err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	s.log.Error("%s", msg)
	s.stats.RecordError(msg)
	return pmqerrors.Command(command, code, err)
}
