// Package errors provides structured error types for the simulation bridge.
//
// Errors are categorized by Phase (where in an exchange the error occurred)
// and Kind (what went wrong). Every Kind is fatal: the bridge never retries
// or downgrades a failure.
//
//	KindInitialization  runtime could not start
//	KindResolution      module or function missing, or export not callable
//	KindMarshal         argument not representable on the guest side
//	KindArityMismatch   returned element count differs from the declared one
//	KindForeignRuntime  trap, raise or exit inside the foreign call
//	KindUsage           call on a freed or unknown persistent object
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseUnmarshal, errors.KindArityMismatch).
//		Call("testFunctions", "r1_r2").
//		Path("doubles").
//		Detail("declared %d values, function returned %d", 3, 2).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
