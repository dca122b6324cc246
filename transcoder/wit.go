package transcoder

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

// TypeString renders a WIT type in source syntax.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case *wit.Tuple:
			return "tuple<" + JoinTypes(k.Types) + ">"
		case wit.Type:
			return TypeString(k)
		}
		return fmt.Sprintf("%T", v.Kind)
	default:
		return fmt.Sprintf("%T", t)
	}
}

// JoinTypes renders a comma separated WIT type list.
func JoinTypes(types []wit.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = TypeString(t)
	}
	return strings.Join(names, ", ")
}

// CompareTypes returns the index of the first position where want and got
// differ, or -1 when they match. A length difference is reported at the
// end of the shorter list.
func CompareTypes(want, got []wit.Type) int {
	n := min(len(want), len(got))
	for i := 0; i < n; i++ {
		if TypeString(want[i]) != TypeString(got[i]) {
			return i
		}
	}
	if len(want) != len(got) {
		return n
	}
	return -1
}
