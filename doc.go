// Package simbridge lets a time-stepped simulation call user functions
// compiled to WebAssembly, exchanging doubles, integers and strings every
// step and optionally threading a foreign-owned handle across calls.
//
// # Architecture Overview
//
//	simbridge/           Root package with guest Memory and Allocator interfaces
//	├── runtime/         Bridge service: resolver cache, invoker, objects, error trap
//	├── engine/          wazero lifecycle, module loading, WASI and host imports
//	├── transcoder/      Argument marshalling and result unmarshalling
//	├── resource/        Persistent object table (created, active, freed)
//	├── errors/          Structured error taxonomy
//	└── cmd/simstep/     Simulation driver for scenarios and interactive runs
//
// # Quick Start
//
//	b := runtime.New(runtime.Config{SearchPath: []string{"./functions"}})
//	defer b.Close(ctx)
//
//	out := make([]int32, 2)
//	err := b.Exchange(ctx, &runtime.Request{
//	    Module:   "testFunctions",
//	    Function: "i1_i2",
//	    Ints:     []int32{1},
//	    IntsOut:  out,
//	})
//	// out == [1 2]
//
// # Calling Convention
//
// Each argument group crosses the boundary by its declared count: zero
// values contribute nothing, one value is passed as a scalar (f64, i32, or
// a string as ptr+len), more values as a ptr+len list in guest memory.
// Results follow the same rule in reverse.
//
// # Persistent Objects
//
//	obj := b.NewObject()
//	b.Exchange(ctx, &runtime.Request{..., Object: obj, Retain: true})
//	b.FreeObject(ctx, obj)
//
// The first exchange passes a "no handle yet" flag, later ones pass the
// handle returned by the previous call. The handle is released once, when
// the object is freed.
//
// # Thread Safety
//
// A Bridge is NOT safe for concurrent use. The simulation driver must call
// it from one goroutine at a time; there is no internal locking on the
// exchange path and calls cannot be cancelled.
package simbridge
