package wasmbuild

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestAppendU32(t *testing.T) {
	tests := []struct {
		want []byte
		v    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xE5, 0x8E, 0x26}, 624485},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, 0xFFFFFFFF},
	}
	for _, tc := range tests {
		if got := AppendU32(nil, tc.v); !bytes.Equal(got, tc.want) {
			t.Errorf("AppendU32(%d) = %x, want %x", tc.v, got, tc.want)
		}
	}
}

func TestAppendI32(t *testing.T) {
	tests := []struct {
		want []byte
		v    int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x3F}, 63},
		{[]byte{0xC0, 0x00}, 64},
		{[]byte{0x7F}, -1},
		{[]byte{0x78}, -8},
		{[]byte{0x80, 0x7F}, -128},
	}
	for _, tc := range tests {
		if got := AppendI32(nil, tc.v); !bytes.Equal(got, tc.want) {
			t.Errorf("AppendI32(%d) = %x, want %x", tc.v, got, tc.want)
		}
	}
}

func TestModule_CompilesAndRuns(t *testing.T) {
	ctx := context.Background()

	m := New()
	m.Memory(1)
	counter := m.Global("count", true, 5)
	m.Data(16, []byte{7, 0, 0, 0})
	m.Func("add", Types(I32, I32), Types(I32), nil,
		LocalGet(0), LocalGet(1), Op(OpI32Add),
	)
	m.Func("load16", nil, Types(I32), nil,
		I32Const(16), I32Load(0),
	)
	m.Func("bump", nil, Types(I32), nil,
		GlobalGet(counter), I32Const(1), Op(OpI32Add), GlobalSet(counter),
		GlobalGet(counter),
	)
	m.Func("half", Types(F64), Types(F64), nil,
		LocalGet(0), F64Const(0.5), Op(0xA2), // f64.mul
	)

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, m.Bytes())
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	res, err := mod.ExportedFunction("add").Call(ctx, 40, 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res[0] != 42 {
		t.Errorf("add = %d, want 42", res[0])
	}

	res, err = mod.ExportedFunction("load16").Call(ctx)
	if err != nil {
		t.Fatalf("load16: %v", err)
	}
	if res[0] != 7 {
		t.Errorf("load16 = %d, want 7", res[0])
	}

	res, err = mod.ExportedFunction("bump").Call(ctx)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if res[0] != 6 {
		t.Errorf("bump = %d, want 6", res[0])
	}

	res, err = mod.ExportedFunction("half").Call(ctx, api.EncodeF64(3))
	if err != nil {
		t.Fatalf("half: %v", err)
	}
	if got := api.DecodeF64(res[0]); got != 1.5 {
		t.Errorf("half = %v, want 1.5", got)
	}

	if mod.ExportedGlobal("count") == nil {
		t.Error("exported global missing")
	}
}

func TestImport_AfterFuncPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m := New()
	m.Func("f", nil, nil, nil)
	m.Import("env", "g", nil, nil)
}
