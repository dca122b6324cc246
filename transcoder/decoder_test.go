package transcoder

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/simbridge/errors"
)

func TestDecode_Scalars(t *testing.T) {
	s := Shape{DoublesOut: 1, IntsOut: 1, Retain: true}
	out, err := NewDecoder(nil).Decode(s, []uint64{api.EncodeF64(-3.25), api.EncodeI32(-9), 77})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Doubles) != 1 || out.Doubles[0] != -3.25 {
		t.Errorf("Doubles = %v", out.Doubles)
	}
	if len(out.Ints) != 1 || out.Ints[0] != -9 {
		t.Errorf("Ints = %v", out.Ints)
	}
	if !out.HasHandle || out.Handle != 77 {
		t.Errorf("handle = %d (%v)", out.Handle, out.HasHandle)
	}
}

func TestDecode_Lists(t *testing.T) {
	mem := newSliceMemory(256)
	nan := math.Float64frombits(0x7ff8dead00000001)
	binary.LittleEndian.PutUint64(mem.data[64:], math.Float64bits(1.25))
	binary.LittleEndian.PutUint64(mem.data[72:], math.Float64bits(nan))
	binary.LittleEndian.PutUint32(mem.data[128:], uint32(0xFFFFFFFF))
	binary.LittleEndian.PutUint32(mem.data[132:], 5)

	s := Shape{DoublesOut: 2, IntsOut: 2}
	out, err := NewDecoder(mem).Decode(s, []uint64{64, 2, 128, 2})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Doubles[0] != 1.25 || math.Float64bits(out.Doubles[1]) != 0x7ff8dead00000001 {
		t.Errorf("Doubles = %v", out.Doubles)
	}
	if out.Ints[0] != -1 || out.Ints[1] != 5 {
		t.Errorf("Ints = %v", out.Ints)
	}
	if out.HasHandle {
		t.Error("no handle expected without retention")
	}
}

func TestDecode_LengthMismatch(t *testing.T) {
	mem := newSliceMemory(256)
	_, err := NewDecoder(mem).Decode(Shape{IntsOut: 3}, []uint64{0, 2})
	if errors.KindOf(err) != errors.KindArityMismatch {
		t.Fatalf("expected arity mismatch, got %v", err)
	}
}

func TestDecode_FlatCountMismatch(t *testing.T) {
	_, err := NewDecoder(nil).Decode(Shape{DoublesOut: 1}, []uint64{1, 2})
	if errors.KindOf(err) != errors.KindArityMismatch {
		t.Fatalf("expected arity mismatch, got %v", err)
	}
}

func TestDecode_OutOfBounds(t *testing.T) {
	mem := newSliceMemory(16)
	tests := []struct {
		name string
		raw  []uint64
	}{
		{"past end", []uint64{12, 2}},
		{"wraps", []uint64{0xFFFFFFFC, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder(mem).Decode(Shape{IntsOut: 2}, tc.raw)
			if errors.KindOf(err) != errors.KindMarshal {
				t.Errorf("expected marshal error, got %v", err)
			}
		})
	}
}

func TestDecode_FailureLeavesBuffersUntouched(t *testing.T) {
	mem := newSliceMemory(64)
	binary.LittleEndian.PutUint64(mem.data[0:], math.Float64bits(9))
	binary.LittleEndian.PutUint64(mem.data[8:], math.Float64bits(9))

	doublesOut := []float64{-1, -1}
	intsOut := []int32{-1, -1, -1}

	// doubles decode fine, ints report the wrong length
	out, err := NewDecoder(mem).Decode(Shape{DoublesOut: 2, IntsOut: 3}, []uint64{0, 2, 16, 2})
	if err == nil {
		out.CopyInto(doublesOut, intsOut)
		t.Fatal("expected error")
	}
	for _, v := range doublesOut {
		if v != -1 {
			t.Errorf("doubles buffer modified: %v", doublesOut)
		}
	}
	for _, v := range intsOut {
		if v != -1 {
			t.Errorf("ints buffer modified: %v", intsOut)
		}
	}
}

func TestRoundTrip_BitIdentical(t *testing.T) {
	mem := newSliceMemory(4096)
	enc := NewEncoder(mem, &bumpAllocator{next: 8})

	doubles := []float64{0, -0.0, math.SmallestNonzeroFloat64, math.MaxFloat64, math.Inf(1), math.Float64frombits(0x7ff4000000000123)}
	ints := []int32{math.MinInt32, -1, 0, 1, math.MaxInt32}

	flat, err := enc.Encode(&Input{Doubles: doubles, Ints: ints})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	s := Shape{DoublesOut: len(doubles), IntsOut: len(ints)}
	out, err := NewDecoder(mem).Decode(s, flat)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	gotD := make([]float64, len(doubles))
	gotI := make([]int32, len(ints))
	out.CopyInto(gotD, gotI)
	for i := range doubles {
		if math.Float64bits(gotD[i]) != math.Float64bits(doubles[i]) {
			t.Errorf("double %d: %x != %x", i, math.Float64bits(gotD[i]), math.Float64bits(doubles[i]))
		}
	}
	for i := range ints {
		if gotI[i] != ints[i] {
			t.Errorf("int %d: %d != %d", i, gotI[i], ints[i])
		}
	}
}

func TestCheckParams(t *testing.T) {
	s := Shape{Doubles: 1, Ints: 1}
	if err := CheckParams(s, []api.ValueType{f64, i32}); err != nil {
		t.Errorf("matching params: %v", err)
	}
	err := CheckParams(s, []api.ValueType{i32, i32})
	if errors.KindOf(err) != errors.KindMarshal {
		t.Errorf("expected marshal error, got %v", err)
	}
}

func TestCheckResults(t *testing.T) {
	s := Shape{DoublesOut: 2}
	if err := CheckResults(s, []api.ValueType{i32, i32}); err != nil {
		t.Errorf("matching results: %v", err)
	}
	err := CheckResults(s, []api.ValueType{f64})
	if errors.KindOf(err) != errors.KindArityMismatch {
		t.Errorf("expected arity mismatch, got %v", err)
	}
}
