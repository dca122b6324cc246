// Package transcoder converts exchange arguments between Go values and the
// flat core WebAssembly values of a foreign call.
//
// # Argument Groups
//
// An exchange carries up to three input groups (doubles, integers, strings)
// and an optional handle slot. A group's arity follows from its element
// count alone:
//
//	count   arity    flat form
//	───────────────────────────────────────────────
//	0       Absent   nothing
//	1       Scalar   f64 | i32 | (ptr, len) string
//	n > 1   List     (ptr, len) into guest memory
//
// Lists are laid out contiguously in little-endian order:
//
//	Group     Element    Size   Align
//	──────────────────────────────────
//	doubles   f64        8      8
//	ints      i32        4      4
//	strings   (ptr,len)  8      4
//
// The handle slot is a canonical option<u32>: (present i32, handle i32).
// present=0 means no handle has been stored yet.
//
// Results follow the same rules for doubles and integers, then a u32
// handle when retention is on.
//
// # Decoding
//
// Decoder.Decode checks every result before producing an Output; callers
// copy the Output into their buffers only when decoding succeeded, so a
// failed exchange never writes a partial result.
//
// # WIT View
//
// Shape.WITParams and Shape.WITResults describe an exchange in WIT terms
// (f64, list<f64>, s32, list<s32>, string, list<string>, option<u32>, u32)
// so it can be compared with signatures declared next to a module.
package transcoder
