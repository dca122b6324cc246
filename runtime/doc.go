// Package runtime is the bridge a time-stepped simulation uses to call
// foreign functions each step.
//
// # Quick Start
//
//	ctx := context.Background()
//	b := runtime.New(runtime.Config{SearchPath: []string{"./models"}})
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
// The runtime starts on the first exchange. A startup failure is
// remembered; it is reported again by every later call and never retried.
//
// # Exchanges
//
// Each exchange runs these stages in order:
//
//	resolve    load the module (cached) and find the export (cached)
//	check      compare the request's shape with the declared signature
//	marshal    lower inputs into flat parameters and guest memory
//	invoke     call the function; traps, raise and exit are foreign errors
//	unmarshal  decode results, then copy them into the caller's buffers
//
// The length of each slice in a Request is the declared count of that
// group. A count of 1 passes a scalar and a larger count passes a list,
// so the arity of each group follows from its count alone.
//
// # Persistent Objects
//
// Functions that keep state between steps receive and return a handle:
//
//	obj := b.NewObject()
//	req := &runtime.Request{Module: "m", Function: "f", Object: obj, Retain: true, ...}
//	b.Exchange(ctx, req) // first call: no handle
//	b.Exchange(ctx, req) // later calls: the handle returned last time
//	b.FreeObject(ctx, obj)
//
// The handle stored on an object is only passed to calls of the module
// that returned it. FreeObject releases it once through the module's
// release_handle export. Using an object after it was freed is an error.
//
// # Error Trap
//
// Host wraps a Bridge for hosts without error handling: each failure is
// reported once to a FatalFunc, Abort by default.
//
//	h := runtime.NewHost(runtime.Default(), nil)
//	defer runtime.Finalize(ctx)
//
// # Thread Safety
//
// A Bridge must be used from one goroutine at a time. Default and Finalize
// may be called from any goroutine.
package runtime
