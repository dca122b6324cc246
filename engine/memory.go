package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	simbridge "github.com/wippyai/simbridge"
)

var (
	_ simbridge.Memory    = (*WazeroMemory)(nil)
	_ simbridge.Allocator = (*wazeroAllocator)(nil)
)

// WazeroMemory wraps wazero memory to implement simbridge.Memory
type WazeroMemory struct {
	mem api.Memory
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// Size returns the current size of linear memory in bytes.
func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// wazeroAllocator implements simbridge.Allocator using the guest's
// allocator export. It is bound to the context of one exchange.
type wazeroAllocator struct {
	ctx     context.Context
	allocFn api.Function
	simple  bool
}

func (a *wazeroAllocator) Alloc(size, align uint32) (uint32, error) {
	var (
		res []uint64
		err error
	)
	if a.simple {
		res, err = a.allocFn.Call(a.ctx, uint64(size))
	} else {
		res, err = a.allocFn.Call(a.ctx, 0, 0, uint64(align), uint64(size))
	}
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, fmt.Errorf("allocator returned %d values", len(res))
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 && size > 0 {
		return 0, fmt.Errorf("allocator returned null for %d bytes", size)
	}
	return ptr, nil
}
