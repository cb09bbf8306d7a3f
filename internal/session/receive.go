package session

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	pmqerrors "pmq/internal/errors"
	"pmq/util"
)

// prefixMax is the widest "<priority> <size> " prefix a message can
// need: a uint32 priority, a space, a non-negative int size, a space.
var prefixMax = len(strconv.FormatUint(math.MaxUint32, 10)) + 1 +
	len(strconv.FormatInt(math.MaxInt, 10)) + 1

// Receiver performs one dequeue-and-print cycle at a time.  Its buffer
// is laid out as
//
//	[ prefixMax bytes ][ msgSize bytes of payload ][ '\n' ]
//
// The kernel writes the payload in place, the prefix is formatted
// backwards so that it ends right where the payload starts, and the
// whole line leaves in a single write.  A Receiver is not safe for
// concurrent use; the dispatcher and the drain goroutine each own one.
type Receiver struct {
	s   *Session
	buf []byte
}

// Once receives and prints one message.  It returns nil on success and
// an unreported error for which errors.IsRetryable is true when the
// wait was interrupted or the handle was invalidated.  Any other error
// has already been reported and is a *errors.CommandError.
func (r *Receiver) Once(ctx context.Context) error {
	return r.print(func(p []byte) (int, uint, error) {
		return r.s.queue.Receive(ctx, p)
	})
}

// Pending prints one message if one is already queued, without waiting.
// An empty queue yields an unreported error for which errors.IsEmpty is
// true; other errors are as for Once.
func (r *Receiver) Pending() error {
	return r.print(r.s.queue.TryReceive)
}

func (r *Receiver) print(receive func([]byte) (int, uint, error)) error {
	if err := r.alloc(); err != nil {
		return err
	}
	payload := r.buf[prefixMax : len(r.buf)-1]

	if r.s.log.Enabled(util.LogDebug) {
		r.s.log.Debug("About to receive with buffer=%s prefixMax=%d payload=%s msgsize=%d",
			humanize.IBytes(uint64(len(r.buf))), prefixMax,
			humanize.IBytes(uint64(len(payload))), r.s.msgSize)
	}

	n, prio, err := receive(payload)
	if err != nil {
		if pmqerrors.IsEmpty(err) {
			return err
		}
		if pmqerrors.IsRetryable(err) {
			r.s.stats.Interrupted()
			return err
		}
		return r.s.fail("receive", CodeReceiveFailed, err, "Failed to receive message: %v", cause(err))
	}
	r.s.log.Debug("received a priority %d message of size %d", prio, n)

	end := prefixMax + n
	r.buf[end] = '\n'
	start := putPrefix(r.buf[:prefixMax], uint64(prio), uint64(n))
	r.s.log.Debug("prefix width %d of %d", prefixMax-start, prefixMax)

	if err := r.s.writeOut(r.buf[start : end+1]); err != nil {
		return r.s.fail("receive", CodeWriteFailed, err, "Failed to return message: %v", err)
	}
	r.s.stats.MessageReceived(n)
	return nil
}

// alloc sizes the buffer for the session's message size.  It allocates
// at most once per Receiver.
func (r *Receiver) alloc() (err error) {
	need := int64(prefixMax) + r.s.msgSize + 1
	if int64(len(r.buf)) == need {
		return nil
	}

	if r.s.msgSize < 0 || need > int64(math.MaxInt) {
		return r.allocFailed(fmt.Errorf("receive buffer of %d bytes", need))
	}
	defer func() {
		if p := recover(); p != nil {
			r.buf = nil
			err = r.allocFailed(fmt.Errorf("%v", p))
		}
	}()
	r.buf = make([]byte, need)
	return nil
}

func (r *Receiver) allocFailed(err error) error {
	return r.s.fail("receive", CodeAllocFailed, err, "Failed to allocate memory for consuming messages.")
}

// putPrefix writes "<prio> <size> " so that it ends at the end of dst
// and returns the index at which it starts.
func putPrefix(dst []byte, prio, size uint64) int {
	i := len(dst) - 1
	dst[i] = ' '
	i = putUintBackward(dst, i, size)
	i--
	dst[i] = ' '
	return putUintBackward(dst, i, prio)
}

// putUintBackward writes the decimal digits of v so that the last digit
// lands at dst[end-1], returning the index of the first digit.
func putUintBackward(dst []byte, end int, v uint64) int {
	for {
		end--
		dst[end] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			return end
		}
	}
}
