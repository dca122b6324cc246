package transcoder

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Arity is the form a group takes on the wire, derived from its count.
type Arity uint8

const (
	Absent Arity = iota
	Scalar
	List
)

// ArityOf classifies a group by its element count.
func ArityOf(count int) Arity {
	switch {
	case count <= 0:
		return Absent
	case count == 1:
		return Scalar
	default:
		return List
	}
}

func (a Arity) String() string {
	switch a {
	case Absent:
		return "absent"
	case Scalar:
		return "scalar"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// Shape is the declared layout of one exchange: input group counts,
// declared output counts and whether a handle is threaded through.
// StringBytes is the total length of the strings; a single empty string
// crosses as (0, 0) and touches no memory.
type Shape struct {
	Doubles     int
	Ints        int
	Strings     int
	StringBytes int
	DoublesOut  int
	IntsOut     int
	Retain      bool
}

var (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

// Params returns the flat parameter types the foreign function must declare.
func (s Shape) Params() []api.ValueType {
	var out []api.ValueType
	switch ArityOf(s.Doubles) {
	case Scalar:
		out = append(out, f64)
	case List:
		out = append(out, i32, i32)
	}
	switch ArityOf(s.Ints) {
	case Scalar:
		out = append(out, i32)
	case List:
		out = append(out, i32, i32)
	}
	if ArityOf(s.Strings) != Absent {
		out = append(out, i32, i32)
	}
	if s.Retain {
		out = append(out, i32, i32)
	}
	return out
}

// Results returns the flat result types the foreign function must declare.
func (s Shape) Results() []api.ValueType {
	var out []api.ValueType
	switch ArityOf(s.DoublesOut) {
	case Scalar:
		out = append(out, f64)
	case List:
		out = append(out, i32, i32)
	}
	switch ArityOf(s.IntsOut) {
	case Scalar:
		out = append(out, i32)
	case List:
		out = append(out, i32, i32)
	}
	if s.Retain {
		out = append(out, i32)
	}
	return out
}

// NeedsMemory reports whether encoding or decoding touches guest memory.
func (s Shape) NeedsMemory() bool {
	return s.NeedsAllocator() || s.DoublesOut > 1 || s.IntsOut > 1
}

// NeedsAllocator reports whether encoding allocates guest memory.
func (s Shape) NeedsAllocator() bool {
	return s.Doubles > 1 || s.Ints > 1 || s.Strings > 1 || s.StringBytes > 0
}

// WITParams returns the exchange's parameters as WIT types.
func (s Shape) WITParams() []wit.Type {
	var out []wit.Type
	if t := groupType(s.Doubles, wit.F64{}); t != nil {
		out = append(out, t)
	}
	if t := groupType(s.Ints, wit.S32{}); t != nil {
		out = append(out, t)
	}
	if t := groupType(s.Strings, wit.String{}); t != nil {
		out = append(out, t)
	}
	if s.Retain {
		out = append(out, &wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}})
	}
	return out
}

// WITResults returns the exchange's results as WIT types.
func (s Shape) WITResults() []wit.Type {
	var out []wit.Type
	if t := groupType(s.DoublesOut, wit.F64{}); t != nil {
		out = append(out, t)
	}
	if t := groupType(s.IntsOut, wit.S32{}); t != nil {
		out = append(out, t)
	}
	if s.Retain {
		out = append(out, wit.U32{})
	}
	return out
}

func groupType(count int, elem wit.Type) wit.Type {
	switch ArityOf(count) {
	case Scalar:
		return elem
	case List:
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}
	default:
		return nil
	}
}

// String renders the shape as a WIT function type.
func (s Shape) String() string {
	var b strings.Builder
	b.WriteString("func(")
	b.WriteString(JoinTypes(s.WITParams()))
	b.WriteString(")")
	switch res := s.WITResults(); len(res) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(TypeString(res[0]))
	default:
		b.WriteString(" -> (")
		b.WriteString(JoinTypes(res))
		b.WriteString(")")
	}
	return b.String()
}

// FormatValueTypes renders core value types as "(f64, i32)".
func FormatValueTypes(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// EqualValueTypes reports whether two core signatures are identical.
func EqualValueTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
