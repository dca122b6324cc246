// Package testfuncs builds the guest modules used by the bridge tests.
//
// The main module, registered as "testFunctions", follows the naming of the
// classic exchange fixtures: r = double, i = integer, s = string, the digit
// is the element count, and the part after the underscore is the result.
//
//	r1_r1(x)            2x
//	r2_r1([a b])        a+b
//	r1_r2(x)            [x 2x]
//	i1_i1(x)            2x
//	i1_i2(x)            [x 2x]
//	r1i1_r1i1(x, n)     (x, n)
//	echo_r(list)        list
//	echo_i(list)        list
//	echo_ri(ds, is)     (ds, is)
//	s1_i2(s)            [len(s) s[0]]
//	s2_i2([a b])        [len(a) len(b)]
//	counter(h?)         (n, n) where n = h+1, or 1 without a handle
//	r1_r1_state(x, h?)  (2x, h), or (2x, 42) without a handle
//	release_handle(h)   counts releases
//	released_count()    number of releases so far
//	fail()              traps
//	noop()              nothing
package testfuncs

import (
	w "github.com/wippyai/simbridge/internal/wasmbuild"
)

// Name is the module name the fixtures are registered under.
const Name = "testFunctions"

// InitialHandle is returned by r1_r1_state when called without a handle.
const InitialHandle = 42

const (
	scratch  = 1024
	heapBase = 4096
	message  = 2048
)

// Module returns the testFunctions module.
func Module() []byte {
	m := w.New()
	m.Memory(2)
	heap := m.Global("", true, heapBase)
	released := m.Global("released", true, 0)

	m.Func("cabi_realloc", w.Types(w.I32, w.I32, w.I32, w.I32), w.Types(w.I32), w.Types(w.I32),
		w.GlobalGet(heap), w.I32Const(7), w.Op(w.OpI32Add), w.I32Const(-8), w.Op(w.OpI32And),
		w.LocalTee(4), w.LocalGet(3), w.Op(w.OpI32Add), w.GlobalSet(heap),
		w.LocalGet(4),
	)

	m.Func("r1_r1", w.Types(w.F64), w.Types(w.F64), nil,
		w.LocalGet(0), w.LocalGet(0), w.Op(w.OpF64Add),
	)
	m.Func("r2_r1", w.Types(w.I32, w.I32), w.Types(w.F64), nil,
		w.LocalGet(0), w.F64Load(0), w.LocalGet(0), w.F64Load(8), w.Op(w.OpF64Add),
	)
	m.Func("r1_r2", w.Types(w.F64), w.Types(w.I32, w.I32), nil,
		w.I32Const(scratch), w.LocalGet(0), w.F64Store(0),
		w.I32Const(scratch), w.LocalGet(0), w.LocalGet(0), w.Op(w.OpF64Add), w.F64Store(8),
		w.I32Const(scratch), w.I32Const(2),
	)
	m.Func("i1_i1", w.Types(w.I32), w.Types(w.I32), nil,
		w.LocalGet(0), w.I32Const(2), w.Op(w.OpI32Mul),
	)
	m.Func("i1_i2", w.Types(w.I32), w.Types(w.I32, w.I32), nil,
		w.I32Const(scratch), w.LocalGet(0), w.I32Store(0),
		w.I32Const(scratch), w.LocalGet(0), w.I32Const(2), w.Op(w.OpI32Mul), w.I32Store(4),
		w.I32Const(scratch), w.I32Const(2),
	)
	m.Func("r1i1_r1i1", w.Types(w.F64, w.I32), w.Types(w.F64, w.I32), nil,
		w.LocalGet(0), w.LocalGet(1),
	)
	m.Func("echo_r", w.Types(w.I32, w.I32), w.Types(w.I32, w.I32), nil,
		w.LocalGet(0), w.LocalGet(1),
	)
	m.Func("echo_i", w.Types(w.I32, w.I32), w.Types(w.I32, w.I32), nil,
		w.LocalGet(0), w.LocalGet(1),
	)
	m.Func("echo_ri", w.Types(w.I32, w.I32, w.I32, w.I32), w.Types(w.I32, w.I32, w.I32, w.I32), nil,
		w.LocalGet(0), w.LocalGet(1), w.LocalGet(2), w.LocalGet(3),
	)
	m.Func("s1_i2", w.Types(w.I32, w.I32), w.Types(w.I32, w.I32), nil,
		w.I32Const(scratch), w.LocalGet(1), w.I32Store(0),
		w.I32Const(scratch), w.LocalGet(0), w.I32Load8U(0), w.I32Store(4),
		w.I32Const(scratch), w.I32Const(2),
	)
	m.Func("s2_i2", w.Types(w.I32, w.I32), w.Types(w.I32, w.I32), nil,
		w.I32Const(scratch), w.LocalGet(0), w.I32Load(4), w.I32Store(0),
		w.I32Const(scratch), w.LocalGet(0), w.I32Load(12), w.I32Store(4),
		w.I32Const(scratch), w.I32Const(2),
	)
	m.Func("counter", w.Types(w.I32, w.I32), w.Types(w.I32, w.I32), w.Types(w.I32),
		w.LocalGet(0),
		w.IfResult(w.I32),
		w.LocalGet(1), w.I32Const(1), w.Op(w.OpI32Add),
		w.Op(w.OpElse),
		w.I32Const(1),
		w.Op(w.OpEnd),
		w.LocalTee(2), w.LocalGet(2),
	)
	m.Func("r1_r1_state", w.Types(w.F64, w.I32, w.I32), w.Types(w.F64, w.I32), nil,
		w.LocalGet(0), w.LocalGet(0), w.Op(w.OpF64Add),
		w.LocalGet(1),
		w.IfResult(w.I32),
		w.LocalGet(2),
		w.Op(w.OpElse),
		w.I32Const(InitialHandle),
		w.Op(w.OpEnd),
	)
	m.Func("release_handle", w.Types(w.I32), nil, nil,
		w.GlobalGet(released), w.I32Const(1), w.Op(w.OpI32Add), w.GlobalSet(released),
	)
	m.Func("released_count", nil, w.Types(w.I32), nil,
		w.GlobalGet(released),
	)
	m.Func("fail", nil, nil, nil, w.Op(w.OpUnreachable))
	m.Func("noop", nil, nil, nil)

	return m.Bytes()
}

// RaisingName is the module name for Raising.
const RaisingName = "raising"

// RaiseMessage is the text raised by raising.boom.
const RaiseMessage = "boom"

// Raising returns a module that uses the simbridge host imports:
// chatty(x) logs a line and returns x, boom() raises RaiseMessage.
func Raising() []byte {
	m := w.New()
	logFn := m.Import("simbridge", "log", w.Types(w.I32, w.I32, w.I32), nil)
	raiseFn := m.Import("simbridge", "raise", w.Types(w.I32, w.I32), nil)
	m.Memory(1)
	greeting := "hello from guest"
	m.Data(message, []byte(RaiseMessage))
	m.Data(message+64, []byte(greeting))

	m.Func("chatty", w.Types(w.I32), w.Types(w.I32), nil,
		w.I32Const(1), w.I32Const(message+64), w.I32Const(int32(len(greeting))), w.Call(logFn),
		w.LocalGet(0),
	)
	m.Func("boom", nil, nil, nil,
		w.I32Const(message), w.I32Const(int32(len(RaiseMessage))), w.Call(raiseFn),
	)
	return m.Bytes()
}

// ExitingName is the module name for Exiting.
const ExitingName = "exiting"

// ExitCode is the status passed to proc_exit by exiting.quit.
const ExitCode = 3

// Exiting returns a module whose quit() calls WASI proc_exit(ExitCode).
func Exiting() []byte {
	m := w.New()
	exit := m.Import("wasi_snapshot_preview1", "proc_exit", w.Types(w.I32), nil)
	m.Func("quit", nil, nil, nil,
		w.I32Const(ExitCode), w.Call(exit),
	)
	return m.Bytes()
}

// BadReleaseName is the module name for BadRelease.
const BadReleaseName = "badRelease"

// BadRelease returns a module whose acquire(h?) always returns handle 7
// and whose release_handle traps.
func BadRelease() []byte {
	m := w.New()
	m.Func("acquire", w.Types(w.I32, w.I32), w.Types(w.I32), nil,
		w.I32Const(7),
	)
	m.Func("release_handle", w.Types(w.I32), nil, nil, w.Op(w.OpUnreachable))
	return m.Bytes()
}
