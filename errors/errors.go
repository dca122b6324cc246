package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in an exchange the error occurred
type Phase string

const (
	PhaseInit      Phase = "init"      // runtime startup
	PhaseResolve   Phase = "resolve"   // module import, function lookup
	PhaseMarshal   Phase = "marshal"   // Go to WASM
	PhaseInvoke    Phase = "invoke"    // foreign call
	PhaseUnmarshal Phase = "unmarshal" // WASM to Go
	PhaseRegistry  Phase = "registry"  // persistent object lifecycle
	PhaseParse     Phase = "parse"     // WIT sidecar parsing
)

// Kind categorizes the error. Every kind is fatal to the exchange that
// produced it.
type Kind string

const (
	KindInitialization Kind = "initialization"
	KindResolution     Kind = "resolution"
	KindMarshal        Kind = "marshal"
	KindArityMismatch  Kind = "arity_mismatch"
	KindForeignRuntime Kind = "foreign_runtime"
	KindUsage          Kind = "usage"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Module   string
	Function string
	WitType  string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" || e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Module)
		if e.Function != "" {
			b.WriteByte('.')
			b.WriteString(e.Function)
		}
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.WitType != "" {
		b.WriteString(": WIT type ")
		b.WriteString(e.WitType)
	}

	if e.Detail != "" {
		if e.WitType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Call records the module and function being exchanged with
func (b *Builder) Call(module, function string) *Builder {
	b.err.Module = module
	b.err.Function = function
	return b
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WithCall returns err with module and function filled in when it is an
// *Error that does not name a call yet. err itself is never modified, so a
// remembered error can be returned by many calls.
func WithCall(err error, module, function string) error {
	e, ok := err.(*Error)
	if !ok || (e.Module != "" && e.Function != "") {
		return err
	}
	c := *e
	if c.Module == "" {
		c.Module = module
	}
	if c.Function == "" {
		c.Function = function
	}
	return &c
}

// Convenience constructors for common error patterns

// Initialization creates a runtime startup failure
func Initialization(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindInitialization,
		Detail: detail,
		Cause:  cause,
	}
}

// ModuleNotFound creates a resolution error for a module missing from the search path
func ModuleNotFound(module, function string, searched []string) *Error {
	detail := fmt.Sprintf("module %q not found", module)
	if len(searched) > 0 {
		detail += " in " + strings.Join(searched, ", ")
	} else {
		detail += "; search path is empty (set SIMBRIDGE_PATH)"
	}
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindResolution,
		Module:   module,
		Function: function,
		Detail:   detail,
	}
}

// FunctionNotFound creates a resolution error for a missing export
func FunctionNotFound(module, function string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindResolution,
		Module:   module,
		Function: function,
		Detail:   fmt.Sprintf("function %q not found in module %q", function, module),
	}
}

// NotCallable creates a resolution error for an export that is not a function
func NotCallable(module, function, what string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindResolution,
		Module:   module,
		Function: function,
		Detail:   fmt.Sprintf("export %q of module %q is a %s, not a function", function, module, what),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindMarshal,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(path []string, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindMarshal,
		Path:   path,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates an error for a guest memory access outside linear memory
func OutOfBounds(phase Phase, path []string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMarshal,
		Path:   path,
		Detail: fmt.Sprintf("memory range [%d, %d) out of bounds", offset, uint64(offset)+uint64(length)),
		Value:  offset,
	}
}

// ArityMismatch creates an error for a result whose element count differs from the declared one
func ArityMismatch(path []string, declared, actual int) *Error {
	return &Error{
		Phase:  PhaseUnmarshal,
		Kind:   KindArityMismatch,
		Path:   path,
		Detail: fmt.Sprintf("declared %d values, function returned %d", declared, actual),
		Value:  actual,
	}
}

// ForeignRuntime wraps a failure raised inside the foreign call
func ForeignRuntime(cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindForeignRuntime,
		Detail: "foreign call failed",
		Cause:  cause,
	}
}

// Usage creates an error for a call sequence the bridge does not allow
func Usage(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindUsage,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMarshal,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
