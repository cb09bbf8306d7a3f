package util

import (
	"errors"
	"io"
	"syscall"
)

// WriteFull writes all of p to w.  A short write continues with the
// unwritten remainder and EINTR retries the same write; any other error
// is returned together with the number of bytes written so far.
func WriteFull(w io.Writer, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
