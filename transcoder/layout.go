package transcoder

import (
	"fmt"
	"math"
)

// Element sizes and alignments of list payloads in guest memory.
const (
	f64Size  = 8
	f64Align = 8
	i32Size  = 4
	i32Align = 4
	strSize  = 8 // (ptr, len)
	strAlign = 4
)

// Safety limits for a single group.
const (
	MaxListLength = 1 << 24
	MaxStringSize = 1 << 28
)

// limits checked by listBytes and Encode
var (
	maxListLength = MaxListLength
	maxStringSize = MaxStringSize
)

func safeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func safeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// listBytes returns the byte size of n elements of elemSize.
func listBytes(n int, elemSize uint32) (uint32, error) {
	if n < 0 || n > maxListLength {
		return 0, fmt.Errorf("list length %d exceeds limit %d", n, maxListLength)
	}
	size, ok := safeMulU32(uint32(n), elemSize)
	if !ok {
		return 0, fmt.Errorf("list of %d elements overflows", n)
	}
	return size, nil
}

// inBounds reports whether [ptr, ptr+size) does not wrap around.
func inBounds(ptr, size uint32) bool {
	_, ok := safeAddU32(ptr, size)
	return ok
}
