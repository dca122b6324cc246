package runtime

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/simbridge/engine"
	"github.com/wippyai/simbridge/errors"
)

// module is a loaded guest module with its lazily parsed signatures.
type module struct {
	wasm       *engine.WazeroModule
	signatures map[string]*signature
	sigErr     error
	sigParsed  bool
}

// function is a resolved export ready to be called.
type function struct {
	module *module
	call   api.Function
	def    api.FunctionDefinition
	name   string
}

// resolver caches modules by name and functions by module.function for the
// lifetime of the bridge. Failed lookups are not cached.
type resolver struct {
	engine      *engine.WazeroEngine
	modules     map[string]*module
	functions   map[string]*function
	imports     int
	resolutions int
}

func newResolver(eng *engine.WazeroEngine) *resolver {
	return &resolver{
		engine:    eng,
		modules:   make(map[string]*module),
		functions: make(map[string]*function),
	}
}

// module returns the module called name, loading it on first use.
// function is only used to name the failing call.
func (r *resolver) module(ctx context.Context, name, function string) (*module, error) {
	if m, ok := r.modules[name]; ok {
		return m, nil
	}

	wasm, err := r.engine.LoadModule(ctx, name)
	if err != nil {
		var nf *engine.NotFoundError
		if stderrors.As(err, &nf) {
			return nil, errors.ModuleNotFound(name, function, nf.Searched)
		}
		return nil, errors.New(errors.PhaseResolve, errors.KindResolution).
			Call(name, function).
			Detail("load module %q", name).
			Cause(err).
			Build()
	}

	m := &module{wasm: wasm}
	r.modules[name] = m
	r.imports++
	engine.Logger().Debug("module imported",
		zap.String("module", name),
		zap.String("origin", wasm.Origin()))
	return m, nil
}

// function returns the exported function module.name, resolving it on
// first use.
func (r *resolver) function(ctx context.Context, moduleName, name string) (*function, error) {
	key := moduleName + "." + name
	if fn, ok := r.functions[key]; ok {
		return fn, nil
	}

	m, err := r.module(ctx, moduleName, name)
	if err != nil {
		return nil, err
	}

	switch kind := m.wasm.ExportKind(name); kind {
	case engine.ExportFunction:
	case engine.ExportNone:
		return nil, errors.FunctionNotFound(moduleName, name)
	default:
		return nil, errors.NotCallable(moduleName, name, kind)
	}

	call := m.wasm.ExportedFunction(name)
	fn := &function{
		module: m,
		call:   call,
		def:    call.Definition(),
		name:   name,
	}
	r.functions[key] = fn
	r.resolutions++
	engine.Logger().Debug("function resolved", zap.String("function", key))
	return fn, nil
}

// lookup returns a module that is already loaded.
func (r *resolver) lookup(name string) (*module, bool) {
	m, ok := r.modules[name]
	return m, ok
}
