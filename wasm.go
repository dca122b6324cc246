package simbridge

// Memory represents guest linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// Allocator allocates memory in guest linear memory. Buffers handed to a
// foreign call are owned by the callee afterwards, so there is no Free.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
}
