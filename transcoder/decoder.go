package transcoder

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/simbridge/errors"
)

// Output holds the decoded results of one exchange.
type Output struct {
	Doubles   []float64
	Ints      []int32
	Handle    uint32
	HasHandle bool
}

// CopyInto copies the decoded groups into caller buffers. The buffers must
// have the declared lengths the Output was decoded against.
func (o *Output) CopyInto(doubles []float64, ints []int32) {
	copy(doubles, o.Doubles)
	copy(ints, o.Ints)
}

// CheckParams verifies that a function declares the flat parameters the
// shape lowers to.
func CheckParams(s Shape, declared []api.ValueType) error {
	want := s.Params()
	if EqualValueTypes(want, declared) {
		return nil
	}
	return errors.New(errors.PhaseMarshal, errors.KindMarshal).
		WitType(s.String()).
		Detail("arguments lower to %s, function takes %s", FormatValueTypes(want), FormatValueTypes(declared)).
		Build()
}

// CheckResults verifies that a function returns the flat results the shape
// expects. A difference means the declared output counts do not match what
// the function produces.
func CheckResults(s Shape, declared []api.ValueType) error {
	want := s.Results()
	if EqualValueTypes(want, declared) {
		return nil
	}
	return errors.New(errors.PhaseUnmarshal, errors.KindArityMismatch).
		WitType(s.String()).
		Detail("declared outputs expect %s, function returns %s", FormatValueTypes(want), FormatValueTypes(declared)).
		Build()
}

// Decoder lifts flat results into an Output.
type Decoder struct {
	mem Memory
}

// NewDecoder creates a decoder. mem may be nil when no list is returned.
func NewDecoder(mem Memory) *Decoder {
	return &Decoder{mem: mem}
}

// Decode lifts raw, which must have the types of s.Results(). Nothing is
// returned unless every group decoded.
func (d *Decoder) Decode(s Shape, raw []uint64) (*Output, error) {
	if want := len(s.Results()); len(raw) != want {
		return nil, errors.New(errors.PhaseUnmarshal, errors.KindArityMismatch).
			WitType(s.String()).
			Detail("expected %d flat results, got %d", want, len(raw)).
			Build()
	}

	out := &Output{}
	pos := 0

	switch ArityOf(s.DoublesOut) {
	case Scalar:
		out.Doubles = []float64{api.DecodeF64(raw[pos])}
		pos++
	case List:
		vals, err := d.readDoubles(api.DecodeU32(raw[pos]), api.DecodeU32(raw[pos+1]), s.DoublesOut)
		if err != nil {
			return nil, err
		}
		out.Doubles = vals
		pos += 2
	}

	switch ArityOf(s.IntsOut) {
	case Scalar:
		out.Ints = []int32{api.DecodeI32(raw[pos])}
		pos++
	case List:
		vals, err := d.readInts(api.DecodeU32(raw[pos]), api.DecodeU32(raw[pos+1]), s.IntsOut)
		if err != nil {
			return nil, err
		}
		out.Ints = vals
		pos += 2
	}

	if s.Retain {
		out.Handle = api.DecodeU32(raw[pos])
		out.HasHandle = true
	}
	return out, nil
}

func (d *Decoder) readDoubles(ptr, n uint32, declared int) ([]float64, error) {
	path := []string{"doubles"}
	data, err := d.readList(path, ptr, n, declared, f64Size)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*f64Size:]))
	}
	return vals, nil
}

func (d *Decoder) readInts(ptr, n uint32, declared int) ([]int32, error) {
	path := []string{"ints"}
	data, err := d.readList(path, ptr, n, declared, i32Size)
	if err != nil {
		return nil, err
	}
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(binary.LittleEndian.Uint32(data[i*i32Size:]))
	}
	return vals, nil
}

func (d *Decoder) readList(path []string, ptr, n uint32, declared int, elemSize uint32) ([]byte, error) {
	if int64(n) != int64(declared) {
		return nil, errors.ArityMismatch(path, declared, int(n))
	}
	if d.mem == nil {
		return nil, errors.New(errors.PhaseUnmarshal, errors.KindMarshal).
			Path(path...).
			Detail("module exports no memory").
			Build()
	}
	size, err := listBytes(int(n), elemSize)
	if err != nil {
		return nil, errors.New(errors.PhaseUnmarshal, errors.KindMarshal).Path(path...).Cause(err).Build()
	}
	if !inBounds(ptr, size) {
		return nil, errors.OutOfBounds(errors.PhaseUnmarshal, path, ptr, size)
	}
	data, err := d.mem.Read(ptr, size)
	if err != nil {
		return nil, errors.OutOfBounds(errors.PhaseUnmarshal, path, ptr, size)
	}
	return data, nil
}
