package transcoder

import "fmt"

// sliceMemory is a test Memory backed by a byte slice.
type sliceMemory struct {
	data []byte
}

func newSliceMemory(size int) *sliceMemory {
	return &sliceMemory{data: make([]byte, size)}
}

func (m *sliceMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("out of bounds: offset=%d, length=%d", offset, length)
	}
	return nil
}

func (m *sliceMemory) Read(offset, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *sliceMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

// bumpAllocator hands out increasing aligned offsets.
type bumpAllocator struct {
	next  uint32
	calls int
	fail  error
}

func (a *bumpAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.fail != nil {
		return 0, a.fail
	}
	a.calls++
	if align > 1 {
		a.next = (a.next + align - 1) &^ (align - 1)
	}
	ptr := a.next
	a.next += size
	return ptr, nil
}
