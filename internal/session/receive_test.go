package session

import (
	"math"
	"strconv"
	"testing"
)

func TestPrefixMax(t *testing.T) {
	want := len("4294967295") + 1 + len(strconv.Itoa(math.MaxInt)) + 1
	if prefixMax != want {
		t.Errorf("prefixMax = %d, want %d", prefixMax, want)
	}
}

func TestPutPrefix(t *testing.T) {
	tests := []struct {
		name string
		prio uint64
		size uint64
		want string
	}{
		{"zeros", 0, 0, "0 0 "},
		{"small", 3, 5, "3 5 "},
		{"max priority", 32767, 8192, "32767 8192 "},
		{"widest", math.MaxUint32, math.MaxInt, "4294967295 " + strconv.Itoa(math.MaxInt) + " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, prefixMax)
			start := putPrefix(dst, tt.prio, tt.size)
			if got := string(dst[start:]); got != tt.want {
				t.Errorf("putPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPutPrefix_EndsAtPayload(t *testing.T) {
	buf := make([]byte, prefixMax+3)
	copy(buf[prefixMax:], "abc")
	start := putPrefix(buf[:prefixMax], 12, 3)
	if got := string(buf[start:]); got != "12 3 abc" {
		t.Errorf("line = %q", got)
	}
}

func BenchmarkPutPrefix(b *testing.B) {
	dst := make([]byte, prefixMax)
	for i := 0; i < b.N; i++ {
		putPrefix(dst, uint64(i%32768), uint64(i))
	}
}
