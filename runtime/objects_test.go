package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/simbridge/errors"
	"github.com/wippyai/simbridge/internal/testfuncs"
	"github.com/wippyai/simbridge/resource"
)

func counterStep(t *testing.T, b *Bridge, obj resource.Handle) int32 {
	t.Helper()
	out := make([]int32, 1)
	if err := b.Exchange(context.Background(), &Request{
		Module: testfuncs.Name, Function: "counter", IntsOut: out, Object: obj, Retain: true,
	}); err != nil {
		t.Fatalf("counter: %v", err)
	}
	return out[0]
}

func releasedCount(t *testing.T, b *Bridge) int32 {
	t.Helper()
	out := make([]int32, 1)
	if err := b.Exchange(context.Background(), &Request{
		Module: testfuncs.Name, Function: "released_count", IntsOut: out,
	}); err != nil {
		t.Fatalf("released_count: %v", err)
	}
	return out[0]
}

func TestObjects_HandleContinuity(t *testing.T) {
	b := newTestBridge(t)
	obj := b.NewObject()

	for want := int32(1); want <= 5; want++ {
		if got := counterStep(t, b, obj); got != want {
			t.Fatalf("step %d: counter = %d", want, got)
		}
	}

	o, ok := b.Object(obj)
	if !ok || o.State != resource.StateActive || o.Foreign.Value != 5 || o.Foreign.Owner != testfuncs.Name {
		t.Errorf("object = %+v", o)
	}
}

func TestObjects_FirstCallSeesNoHandle(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)
	obj := b.NewObject()

	out := make([]float64, 1)
	req := &Request{
		Module: testfuncs.Name, Function: "r1_r1_state",
		Doubles: []float64{2}, DoublesOut: out, Object: obj, Retain: true,
	}
	if err := b.Exchange(ctx, req); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if o, _ := b.Object(obj); o.Foreign.Value != testfuncs.InitialHandle {
		t.Fatalf("handle after first call = %d, want %d", o.Foreign.Value, testfuncs.InitialHandle)
	}
	if err := b.Exchange(ctx, req); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if o, _ := b.Object(obj); o.Foreign.Value != testfuncs.InitialHandle || o.Exchanges != 2 {
		t.Errorf("handle should be passed back unchanged: %+v", o)
	}
	if out[0] != 4 {
		t.Errorf("r1_r1_state(2) = %v, want 4", out[0])
	}
}

func TestObjects_Isolation(t *testing.T) {
	b := newTestBridge(t)
	a, c := b.NewObject(), b.NewObject()

	counterStep(t, b, a)
	counterStep(t, b, a)
	if got := counterStep(t, b, c); got != 1 {
		t.Errorf("second object sees first object's handle: counter = %d", got)
	}
	if got := counterStep(t, b, a); got != 3 {
		t.Errorf("first object counter = %d, want 3", got)
	}
}

func TestObjects_ReleaseExactlyOnce(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)

	obj := b.NewObject()
	counterStep(t, b, obj)

	if err := b.FreeObject(ctx, obj); err != nil {
		t.Fatalf("FreeObject failed: %v", err)
	}
	if got := releasedCount(t, b); got != 1 {
		t.Fatalf("released %d times, want 1", got)
	}

	if err := b.FreeObject(ctx, obj); errors.KindOf(err) != errors.KindUsage {
		t.Errorf("double free: expected usage error, got %v", err)
	}
	if got := releasedCount(t, b); got != 1 {
		t.Errorf("released %d times after double free, want 1", got)
	}

	unused := b.NewObject()
	if err := b.FreeObject(ctx, unused); err != nil {
		t.Fatalf("FreeObject failed: %v", err)
	}
	if got := releasedCount(t, b); got != 1 {
		t.Errorf("object without handle should not be released, count = %d", got)
	}
}

func TestObjects_UseAfterFree(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(t)
	obj := b.NewObject()
	counterStep(t, b, obj)
	if err := b.FreeObject(ctx, obj); err != nil {
		t.Fatal(err)
	}

	out := []int32{-1}
	err := b.Exchange(ctx, &Request{
		Module: testfuncs.Name, Function: "counter", IntsOut: out, Object: obj, Retain: true,
	})
	if errors.KindOf(err) != errors.KindUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
	if out[0] != -1 {
		t.Errorf("output written on failure: %v", out)
	}
}

func TestObjects_UsageErrors(t *testing.T) {
	b := newTestBridge(t)
	obj := b.NewObject()
	counterStep(t, b, obj)

	tests := []struct {
		name string
		req  *Request
	}{
		{"retain without object", &Request{Module: testfuncs.Name, Function: "counter", IntsOut: make([]int32, 1), Retain: true}},
		{"object without retain", &Request{Module: testfuncs.Name, Function: "i1_i1", Ints: []int32{1}, IntsOut: make([]int32, 1), Object: obj}},
		{"unknown object", &Request{Module: testfuncs.Name, Function: "counter", IntsOut: make([]int32, 1), Object: 999, Retain: true}},
		{"handle from another module", &Request{Module: testfuncs.RaisingName, Function: "chatty", Object: obj, Retain: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := b.Exchange(context.Background(), tc.req); errors.KindOf(err) != errors.KindUsage {
				t.Errorf("expected usage error, got %v", err)
			}
		})
	}
}

func TestObjects_FailedExchangeKeepsHandle(t *testing.T) {
	b := newTestBridge(t)
	obj := b.NewObject()
	counterStep(t, b, obj)

	err := b.Exchange(context.Background(), &Request{
		Module: testfuncs.Name, Function: "counter", IntsOut: make([]int32, 2), Object: obj, Retain: true,
	})
	if errors.KindOf(err) != errors.KindArityMismatch {
		t.Fatalf("expected arity mismatch, got %v", err)
	}
	if o, _ := b.Object(obj); o.Foreign.Value != 1 || o.Exchanges != 1 {
		t.Errorf("object changed by failed exchange: %+v", o)
	}
	if got := counterStep(t, b, obj); got != 2 {
		t.Errorf("counter = %d, want 2", got)
	}
}

func TestObjects_CloseDoesNotRelease(t *testing.T) {
	ctx := context.Background()
	b := New(Config{SearchPath: []string{}, Modules: testModules()})

	var freed []resource.Event
	b.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventFreed {
			freed = append(freed, e)
		}
	}))

	a := b.NewObject()
	counterStep(t, b, a)
	b.NewObject()

	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(freed) != 0 {
		t.Fatalf("Close freed %d objects, want 0", len(freed))
	}
	obj, ok := b.Object(a)
	if !ok || obj.State != resource.StateActive || obj.Foreign.Value != 1 {
		t.Errorf("object after Close = %+v", obj)
	}

	// freeing after Close drops the object without reaching the guest
	if err := b.FreeObject(ctx, a); err != nil {
		t.Errorf("FreeObject after Close: %v", err)
	}
	if len(freed) != 1 {
		t.Errorf("got %d freed events, want 1", len(freed))
	}
}
