package core

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	pmqerrors "pmq/internal/errors"
	"pmq/internal/metrics"
	"pmq/internal/mqueue"
	"pmq/internal/retry"
	"pmq/internal/session"
	"pmq/util"
)

// ServeMode opens a queue and runs the command session on it until the
// session ends.
type ServeMode struct {
	Name    string
	Options mqueue.OpenOptions
	Open    OpenFunc

	// Wait, when set, retries opening a queue that does not exist yet.
	Wait *retry.Backoff

	Logger  *util.Logger
	Metrics *metrics.Collector

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ServeMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ServeMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run opens the queue, hands it to a session, and returns the
// session's result.  Failures are reported before Run returns, so the
// caller only needs the exit code.
func (m *ServeMode) Run(ctx context.Context) error {
	q, err := m.open(ctx)
	if err != nil {
		m.Logger.Error("Unable to open queue named %q: %v", m.Name, cause(err))
		return pmqerrors.Command("open", pmqerrors.ExitCode(err), err)
	}
	m.Logger.Verbose("opened %s (flags=%#x)", m.Name, m.Options.Flags)

	in := m.stdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		m.Logger.Info("reading commands from a terminal; type \"close\" or press Ctrl-D to finish")
	}

	sess, err := session.New(q, session.Options{
		Name:    m.Name,
		Stdin:   in,
		Stdout:  m.stdout(),
		Logger:  m.Logger,
		Metrics: m.Metrics,
	})
	if err != nil {
		q.Close() //nolint:errcheck // the attribute failure is the one reported
		return err
	}
	return sess.Serve(ctx)
}

func (m *ServeMode) open(ctx context.Context) (mqueue.Interface, error) {
	if m.Wait == nil {
		return m.Open(m.Name, m.Options)
	}

	var q mqueue.Interface
	b := *m.Wait
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Verbose("queue %s not there yet (attempt %d): retrying in %v", m.Name, attempt, wait.Round(time.Millisecond))
	}
	err := b.Do(ctx, func(int) error {
		var err error
		q, err = m.Open(m.Name, m.Options)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
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
