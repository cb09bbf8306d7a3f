package util

import "sync"

// DefaultBufSize is the initial capacity of pooled payload buffers
// (8 KiB, the Linux default msgsize_max).
const DefaultBufSize = 8 * 1024

// BufPool provides reusable byte buffers for message payloads,
// reducing GC pressure when a session sends many messages.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool, resliced to length n and
// grown if its capacity is too small.  Callers must return it with
// [PutBuf] when finished.
func GetBuf(n int) *[]byte {
	buf := BufPool.Get().(*[]byte)
	if cap(*buf) < n {
		*buf = make([]byte, n)
	}
	*buf = (*buf)[:n]
	return buf
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
