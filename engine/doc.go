// Package engine hosts guest WebAssembly modules for the bridge.
//
// It wraps wazero: one WazeroEngine owns one runtime, and every module the
// bridge touches is instantiated in it exactly once.
//
// # Architecture
//
//	WazeroEngine  - runtime, host modules and the module Locator
//	WazeroModule  - an instantiated guest with its memory and allocator
//	Locator       - maps module names to binaries
//
// # Locating Modules
//
// Modules registered in Config.Modules are found first. Otherwise each
// directory of the search path is tried in order for <name>.wasm, where
// a dotted name maps to nested directories. The search path comes from
// Config.SearchPath or, when that is nil, from SIMBRIDGE_PATH.
//
// A <name>.wit file next to the binary, or an entry in Config.Signatures,
// declares the module's functions in WIT syntax.
//
// # Host Modules
//
// Guests may import wasi_snapshot_preview1 and simbridge:
//
//	simbridge.log(level i32, ptr i32, len i32)
//	simbridge.raise(ptr i32, len i32)
//
// log writes a UTF-8 message to the engine logger at debug(0), info(1),
// warn(2) or error(3+). raise aborts the running call; its error wraps a
// *GuestError carrying the message.
//
// # Guest ABI
//
// Buffers are allocated in guest memory through the first export found of
// cabi_realloc, canonical_abi_realloc, allocate or alloc. A module may also
// export _initialize (run once at instantiation), cabi_post_<fn> (run after
// each call of fn) and release_handle (run when a persistent object dies).
//
// # Thread Safety
//
// WazeroEngine and WazeroModule are not safe for concurrent use.
package engine
