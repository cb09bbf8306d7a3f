package session

import (
	"bufio"
	"io"
)

// tokenReader splits the command stream into whitespace-delimited
// tokens while still allowing raw, length-prefixed payload reads from
// the same stream.
type tokenReader struct {
	r *bufio.Reader
}

func newTokenReader(r io.Reader) *tokenReader {
	if br, ok := r.(*bufio.Reader); ok {
		return &tokenReader{r: br}
	}
	return &tokenReader{r: bufio.NewReader(r)}
}

// isSpace matches the C locale's isspace.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Token skips leading whitespace and returns the next token.  The
// whitespace byte that ends the token is left unread.  io.EOF is
// returned only when no token was found.
func (t *tokenReader) Token() (string, error) {
	var b byte
	var err error
	for {
		b, err = t.r.ReadByte()
		if err != nil {
			return "", err
		}
		if !isSpace(b) {
			break
		}
	}

	tok := []byte{b}
	for {
		b, err = t.r.ReadByte()
		if err == io.EOF {
			return string(tok), nil
		}
		if err != nil {
			return string(tok), err
		}
		if isSpace(b) {
			t.r.UnreadByte() //nolint:errcheck // always valid after ReadByte
			return string(tok), nil
		}
		tok = append(tok, b)
	}
}

// SkipByte discards exactly one byte, the separator between a send's
// size and its payload.
func (t *tokenReader) SkipByte() {
	t.r.ReadByte() //nolint:errcheck // a missing separator shows up as a short payload
}

// ReadFull fills p from the stream.
func (t *tokenReader) ReadFull(p []byte) (int, error) {
	return io.ReadFull(t.r, p)
}

// Discard consumes n bytes without buffering them.
func (t *tokenReader) Discard(n int64) (int64, error) {
	return io.CopyN(io.Discard, t.r, n)
}
