package runtime

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/wippyai/simbridge/errors"
	"github.com/wippyai/simbridge/internal/testfuncs"
	"github.com/wippyai/simbridge/internal/wasmbuild"
)

func TestExchange_Scalars(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	doubles := make([]float64, 1)
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "r1_r1", Doubles: []float64{3.5}, DoublesOut: doubles,
	}); err != nil {
		t.Fatalf("r1_r1: %v", err)
	}
	if doubles[0] != 7 {
		t.Errorf("r1_r1(3.5) = %v, want 7", doubles[0])
	}

	ints := make([]int32, 1)
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "i1_i1", Ints: []int32{-21}, IntsOut: ints,
	}); err != nil {
		t.Fatalf("i1_i1: %v", err)
	}
	if ints[0] != -42 {
		t.Errorf("i1_i1(-21) = %d, want -42", ints[0])
	}

	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "r1i1_r1i1",
		Doubles: []float64{1.25}, Ints: []int32{9},
		DoublesOut: doubles, IntsOut: ints,
	}); err != nil {
		t.Fatalf("r1i1_r1i1: %v", err)
	}
	if doubles[0] != 1.25 || ints[0] != 9 {
		t.Errorf("r1i1_r1i1 = (%v, %d)", doubles[0], ints[0])
	}

	if err := b.Exchange(ctx, &Request{Module: testfuncs.Name, Function: "noop"}); err != nil {
		t.Errorf("noop: %v", err)
	}
}

func TestExchange_Lists(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	sum := make([]float64, 1)
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "r2_r1", Doubles: []float64{1.5, 2.25}, DoublesOut: sum,
	}); err != nil {
		t.Fatalf("r2_r1: %v", err)
	}
	if sum[0] != 3.75 {
		t.Errorf("r2_r1 = %v, want 3.75", sum[0])
	}

	pair := make([]float64, 2)
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "r1_r2", Doubles: []float64{4}, DoublesOut: pair,
	}); err != nil {
		t.Fatalf("r1_r2: %v", err)
	}
	if pair[0] != 4 || pair[1] != 8 {
		t.Errorf("r1_r2(4) = %v, want [4 8]", pair)
	}
}

func TestExchange_I1I2Repeated(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	for i := 0; i < 10; i++ {
		out := make([]int32, 2)
		if err := b.Exchange(ctx, &Request{
			Module: testfuncs.Name, Function: "i1_i2", Ints: []int32{1}, IntsOut: out,
		}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if out[0] != 1 || out[1] != 2 {
			t.Fatalf("call %d: i1_i2([1]) = %v, want [1 2]", i, out)
		}
	}
	if s := b.Stats(); s.Exchanges != 10 {
		t.Errorf("Exchanges = %d, want 10", s.Exchanges)
	}
}

func TestExchange_RoundTripBitIdentical(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	doubles := []float64{
		0, math.Copysign(0, -1), 1.0 / 3, math.SmallestNonzeroFloat64, -math.MaxFloat64,
		math.Inf(1), math.Inf(-1), math.Float64frombits(0x7ff8000000000abc), math.Float64frombits(0xfff4000000000001),
	}
	ints := []int32{math.MinInt32, -1, 0, 1, math.MaxInt32}

	gotD := make([]float64, len(doubles))
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "echo_r", Doubles: doubles, DoublesOut: gotD,
	}); err != nil {
		t.Fatalf("echo_r: %v", err)
	}
	for i := range doubles {
		if math.Float64bits(gotD[i]) != math.Float64bits(doubles[i]) {
			t.Errorf("echo_r[%d] bits = %x, want %x", i, math.Float64bits(gotD[i]), math.Float64bits(doubles[i]))
		}
	}

	gotI := make([]int32, len(ints))
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "echo_i", Ints: ints, IntsOut: gotI,
	}); err != nil {
		t.Fatalf("echo_i: %v", err)
	}
	for i := range ints {
		if gotI[i] != ints[i] {
			t.Errorf("echo_i[%d] = %d, want %d", i, gotI[i], ints[i])
		}
	}

	gotD2 := make([]float64, 2)
	gotI2 := make([]int32, 3)
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "echo_ri",
		Doubles: []float64{-2.5, 1e300}, Ints: []int32{7, 8, 9},
		DoublesOut: gotD2, IntsOut: gotI2,
	}); err != nil {
		t.Fatalf("echo_ri: %v", err)
	}
	if gotD2[0] != -2.5 || gotD2[1] != 1e300 || gotI2[0] != 7 || gotI2[2] != 9 {
		t.Errorf("echo_ri = %v %v", gotD2, gotI2)
	}
}

func TestExchange_Strings(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	out := make([]int32, 2)
	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "s1_i2", Strings: []string{"hello"}, IntsOut: out,
	}); err != nil {
		t.Fatalf("s1_i2: %v", err)
	}
	if out[0] != 5 || out[1] != 'h' {
		t.Errorf("s1_i2(hello) = %v", out)
	}

	if err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "s2_i2", Strings: []string{"ab", "wxyz"}, IntsOut: out,
	}); err != nil {
		t.Fatalf("s2_i2: %v", err)
	}
	if out[0] != 2 || out[1] != 4 {
		t.Errorf("s2_i2 = %v, want [2 4]", out)
	}
}

func TestExchange_InvalidUTF8(t *testing.T) {
	b := newTestBridge(t)
	out := []int32{-1, -1}
	err := b.Exchange(context.Background(), &Request{
		Module: testfuncs.Name, Function: "s1_i2", Strings: []string{"\xc3\x28"}, IntsOut: out,
	})
	if errors.KindOf(err) != errors.KindMarshal {
		t.Fatalf("expected marshal error, got %v", err)
	}
	if out[0] != -1 || out[1] != -1 {
		t.Errorf("output written on failure: %v", out)
	}
}

func TestExchange_ArityMismatch(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		out  []int32
		outD []float64
	}{
		{
			name: "scalar result declared as list",
			req:  &Request{Module: testfuncs.Name, Function: "r1_r1", Doubles: []float64{1}},
			outD: []float64{-1, -1},
		},
		{
			name: "list length differs",
			req:  &Request{Module: testfuncs.Name, Function: "i1_i2", Ints: []int32{1}},
			out:  []int32{-1, -1, -1},
		},
		{
			name: "undeclared result",
			req:  &Request{Module: testfuncs.Name, Function: "i1_i1", Ints: []int32{1}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBridge(t)
			tc.req.IntsOut = tc.out
			tc.req.DoublesOut = tc.outD
			err := b.Exchange(context.Background(), tc.req)
			if errors.KindOf(err) != errors.KindArityMismatch {
				t.Fatalf("expected arity mismatch, got %v", err)
			}
			for _, v := range tc.out {
				if v != -1 {
					t.Errorf("int buffer modified: %v", tc.out)
				}
			}
			for _, v := range tc.outD {
				if v != -1 {
					t.Errorf("double buffer modified: %v", tc.outD)
				}
			}
		})
	}
}

func TestExchange_ParameterMismatch(t *testing.T) {
	b := newTestBridge(t)
	err := b.Exchange(context.Background(), &Request{
		Module: testfuncs.Name, Function: "i1_i1", Doubles: []float64{1}, IntsOut: make([]int32, 1),
	})
	if errors.KindOf(err) != errors.KindMarshal {
		t.Fatalf("expected marshal error, got %v", err)
	}
}

func TestExchange_ResolutionErrors(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		function string
		contains []string
	}{
		{"missing module", "nowhere", "f", []string{"nowhere", "f", "not found"}},
		{"missing function", testfuncs.Name, "absent", []string{testfuncs.Name, "absent", "not found"}},
		{"memory export", testfuncs.Name, "memory", []string{"memory", "not a function"}},
		{"global export", testfuncs.Name, "released", []string{"released", "global"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBridge(t)
			err := b.Exchange(context.Background(), &Request{Module: tc.module, Function: tc.function})
			if errors.KindOf(err) != errors.KindResolution {
				t.Fatalf("expected resolution error, got %v", err)
			}
			for _, s := range tc.contains {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q should mention %q", err, s)
				}
			}
		})
	}
}

func TestExchange_ForeignErrors(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		function string
		contains string
	}{
		{"trap", testfuncs.Name, "fail", "unreachable"},
		{"raise", testfuncs.RaisingName, "boom", testfuncs.RaiseMessage},
		{"exit", testfuncs.ExitingName, "quit", "exited with code 3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBridge(t)
			err := b.Exchange(context.Background(), &Request{Module: tc.module, Function: tc.function})
			if errors.KindOf(err) != errors.KindForeignRuntime {
				t.Fatalf("expected foreign runtime error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Errorf("error %q should mention %q", err, tc.contains)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Module != tc.module || e.Function != tc.function {
				t.Errorf("error should name the call: %+v", e)
			}
		})
	}
}

func TestExchange_GuestLog(t *testing.T) {
	b := newTestBridge(t)
	out := make([]int32, 1)
	if err := b.Exchange(context.Background(), &Request{
		Module: testfuncs.RaisingName, Function: "chatty", Ints: []int32{5}, IntsOut: out,
	}); err != nil {
		t.Fatalf("chatty: %v", err)
	}
	if out[0] != 5 {
		t.Errorf("chatty(5) = %d", out[0])
	}
}

func TestExchange_CacheIdempotence(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	out := make([]int32, 1)
	req := &Request{Module: testfuncs.Name, Function: "i1_i1", Ints: []int32{2}, IntsOut: out}
	for i := 0; i < 3; i++ {
		if err := b.Exchange(ctx, req); err != nil {
			t.Fatalf("Exchange failed: %v", err)
		}
	}
	if s := b.Stats(); s.Imports != 1 || s.Resolutions != 1 {
		t.Errorf("after repeated calls: %+v, want 1 import and 1 resolution", s)
	}

	if err := b.Exchange(ctx, &Request{Module: testfuncs.Name, Function: "noop"}); err != nil {
		t.Fatalf("noop: %v", err)
	}
	if s := b.Stats(); s.Imports != 1 || s.Resolutions != 2 {
		t.Errorf("after second function: %+v, want 1 import and 2 resolutions", s)
	}

	if err := b.Exchange(ctx, &Request{Module: testfuncs.Name, Function: "absent"}); err == nil {
		t.Fatal("expected error")
	}
	if s := b.Stats(); s.Imports != 1 || s.Resolutions != 2 {
		t.Errorf("failed lookups should not count: %+v", s)
	}
}

func TestExchange_EmptyStringWithoutMemory(t *testing.T) {
	ctx := context.Background()
	m := wasmbuild.New()
	m.Func("length", wasmbuild.Types(wasmbuild.I32, wasmbuild.I32), wasmbuild.Types(wasmbuild.I32), nil,
		wasmbuild.LocalGet(1),
	)
	b := New(Config{SearchPath: []string{}, Modules: map[string][]byte{"nomem": m.Bytes()}})
	defer b.Close(ctx)

	out := []int32{-1}
	if err := b.Exchange(ctx, &Request{Module: "nomem", Function: "length", Strings: []string{""}, IntsOut: out}); err != nil {
		t.Fatalf("empty string: %v", err)
	}
	if out[0] != 0 {
		t.Errorf("length(\"\") = %d, want 0", out[0])
	}

	err := b.Exchange(ctx, &Request{Module: "nomem", Function: "length", Strings: []string{"x"}, IntsOut: out})
	if errors.KindOf(err) != errors.KindMarshal {
		t.Errorf("non-empty string without memory: expected marshal error, got %v", err)
	}
}
