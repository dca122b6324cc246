package transcoder

import (
	"encoding/binary"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/simbridge/errors"
)

// Input holds the arguments of one exchange in host form.
type Input struct {
	Doubles []float64
	Ints    []int32
	Strings []string

	// Retain adds the handle slot. Present=false is the "no handle yet"
	// sentinel.
	Retain  bool
	Present bool
	Handle  uint32
}

// Encoder lowers an Input into flat parameters, writing lists and strings
// into guest memory obtained from the guest allocator.
type Encoder struct {
	mem   Memory
	alloc Allocator
}

// NewEncoder creates an encoder. mem and alloc may be nil when the exchange
// carries only scalars.
func NewEncoder(mem Memory, alloc Allocator) *Encoder {
	return &Encoder{mem: mem, alloc: alloc}
}

// Encode returns the flat parameters for in. Strings are validated before
// anything is allocated.
func (e *Encoder) Encode(in *Input) ([]uint64, error) {
	for i, s := range in.Strings {
		if !utf8.ValidString(s) {
			return nil, errors.InvalidUTF8(stringPath(len(in.Strings), i), []byte(s))
		}
		if len(s) > maxStringSize {
			return nil, errors.New(errors.PhaseMarshal, errors.KindMarshal).
				Path(stringPath(len(in.Strings), i)...).
				Detail("string of %d bytes exceeds limit %d", len(s), maxStringSize).
				Build()
		}
	}

	flat := getBuf64()
	defer putBuf64(flat)

	switch ArityOf(len(in.Doubles)) {
	case Scalar:
		*flat = append(*flat, api.EncodeF64(in.Doubles[0]))
	case List:
		ptr, err := e.writeDoubles(in.Doubles)
		if err != nil {
			return nil, err
		}
		*flat = append(*flat, api.EncodeU32(ptr), api.EncodeU32(uint32(len(in.Doubles))))
	}

	switch ArityOf(len(in.Ints)) {
	case Scalar:
		*flat = append(*flat, api.EncodeI32(in.Ints[0]))
	case List:
		ptr, err := e.writeInts(in.Ints)
		if err != nil {
			return nil, err
		}
		*flat = append(*flat, api.EncodeU32(ptr), api.EncodeU32(uint32(len(in.Ints))))
	}

	switch ArityOf(len(in.Strings)) {
	case Scalar:
		ptr, n, err := e.writeString([]string{"strings"}, in.Strings[0])
		if err != nil {
			return nil, err
		}
		*flat = append(*flat, api.EncodeU32(ptr), api.EncodeU32(n))
	case List:
		ptr, err := e.writeStrings(in.Strings)
		if err != nil {
			return nil, err
		}
		*flat = append(*flat, api.EncodeU32(ptr), api.EncodeU32(uint32(len(in.Strings))))
	}

	if in.Retain {
		var present, handle uint64
		if in.Present {
			present, handle = 1, api.EncodeU32(in.Handle)
		}
		*flat = append(*flat, present, handle)
	}

	out := make([]uint64, len(*flat))
	copy(out, *flat)
	return out, nil
}

func (e *Encoder) writeDoubles(vals []float64) (uint32, error) {
	path := []string{"doubles"}
	size, err := listBytes(len(vals), f64Size)
	if err != nil {
		return 0, errors.New(errors.PhaseMarshal, errors.KindMarshal).Path(path...).Cause(err).Build()
	}
	buf := make([]byte, size)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*f64Size:], math.Float64bits(v))
	}
	return e.write(path, buf, f64Align)
}

func (e *Encoder) writeInts(vals []int32) (uint32, error) {
	path := []string{"ints"}
	size, err := listBytes(len(vals), i32Size)
	if err != nil {
		return 0, errors.New(errors.PhaseMarshal, errors.KindMarshal).Path(path...).Cause(err).Build()
	}
	buf := make([]byte, size)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*i32Size:], uint32(v))
	}
	return e.write(path, buf, i32Align)
}

func (e *Encoder) writeString(path []string, s string) (uint32, uint32, error) {
	if len(s) == 0 {
		return 0, 0, nil
	}
	ptr, err := e.write(path, []byte(s), 1)
	if err != nil {
		return 0, 0, err
	}
	return ptr, uint32(len(s)), nil
}

func (e *Encoder) writeStrings(vals []string) (uint32, error) {
	size, err := listBytes(len(vals), strSize)
	if err != nil {
		return 0, errors.New(errors.PhaseMarshal, errors.KindMarshal).Path("strings").Cause(err).Build()
	}
	pairs := make([]byte, size)
	for i, s := range vals {
		ptr, n, err := e.writeString(stringPath(len(vals), i), s)
		if err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint32(pairs[i*strSize:], ptr)
		binary.LittleEndian.PutUint32(pairs[i*strSize+4:], n)
	}
	return e.write([]string{"strings"}, pairs, strAlign)
}

// write allocates len(data) bytes in the guest and copies data there.
func (e *Encoder) write(path []string, data []byte, align uint32) (uint32, error) {
	if e.mem == nil {
		return 0, errors.New(errors.PhaseMarshal, errors.KindMarshal).
			Path(path...).
			Detail("module exports no memory").
			Build()
	}
	if e.alloc == nil {
		return 0, errors.New(errors.PhaseMarshal, errors.KindMarshal).
			Path(path...).
			Detail("module exports no allocator (cabi_realloc or alloc)").
			Build()
	}

	size := uint32(len(data))
	ptr, err := e.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(path, size, align, err)
	}
	if !inBounds(ptr, size) {
		return 0, errors.OutOfBounds(errors.PhaseMarshal, path, ptr, size)
	}
	if err := e.mem.Write(ptr, data); err != nil {
		return 0, errors.New(errors.PhaseMarshal, errors.KindMarshal).
			Path(path...).
			Value(ptr).
			Detail("write %d bytes at %d", size, ptr).
			Cause(err).
			Build()
	}
	return ptr, nil
}

func stringPath(count, i int) []string {
	if count == 1 {
		return []string{"strings"}
	}
	return []string{"strings[" + strconv.Itoa(i) + "]"}
}
