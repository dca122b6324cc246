package engine

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ebadf     = 8          // POSIX EBADF error code
	invalidFD = 0xFFFFFFFF // -1 as uint32
)

// HostModuleName is the import module guests use to reach the bridge.
const HostModuleName = "simbridge"

// Guest log levels accepted by simbridge.log.
const (
	GuestLevelDebug uint32 = iota
	GuestLevelInfo
	GuestLevelWarn
	GuestLevelError
)

// GuestError is raised when a guest calls simbridge.raise. The foreign call
// unwinds and its error wraps a *GuestError.
type GuestError struct {
	Module  string
	Message string
}

func (e *GuestError) Error() string {
	return e.Module + ": " + e.Message
}

// InstantiateWASIWithAdapter instantiates WASI preview1 with adapter functions
// required by componentize-py and similar tools that use the component model adapter.
func InstantiateWASIWithAdapter(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder("wasi_snapshot_preview1")
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
		}), nil, nil).
		Export("reset_adapter_state")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = ebadf
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_close_badfd")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = invalidFD
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_open_badfd")

	return builder.Instantiate(ctx)
}

// InstantiateBridgeHost instantiates the simbridge host module:
//
//	log(level, ptr, len)   writes a guest message to the bridge logger
//	raise(ptr, len)        aborts the current call with a GuestError
func InstantiateBridgeHost(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	i32 := api.ValueTypeI32
	return r.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(guestLog), []api.ValueType{i32, i32, i32}, nil).
		WithParameterNames("level", "ptr", "len").
		Export("log").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(guestRaise), []api.ValueType{i32, i32}, nil).
		WithParameterNames("ptr", "len").
		Export("raise").
		Instantiate(ctx)
}

func guestLog(_ context.Context, mod api.Module, stack []uint64) {
	level := api.DecodeU32(stack[0])
	msg := guestString(mod, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))

	lvl := zapcore.ErrorLevel
	switch level {
	case GuestLevelDebug:
		lvl = zapcore.DebugLevel
	case GuestLevelInfo:
		lvl = zapcore.InfoLevel
	case GuestLevelWarn:
		lvl = zapcore.WarnLevel
	}
	Logger().Log(lvl, msg, zap.String("module", mod.Name()))
}

func guestRaise(_ context.Context, mod api.Module, stack []uint64) {
	msg := guestString(mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	panic(&GuestError{Module: mod.Name(), Message: msg})
}

func guestString(mod api.Module, ptr, length uint32) string {
	mem := mod.Memory()
	if mem == nil {
		return "<no memory>"
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return "<out of bounds>"
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
