package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	simbridge "github.com/wippyai/simbridge"
)

// Config holds engine configuration options.
type Config struct {
	// MemoryLimitPages limits guest memory growth (64KiB per page).
	// 0 keeps the wazero default (65536 pages = 4GiB).
	MemoryLimitPages uint32

	// SearchPath lists directories searched for <module>.wasm. When nil,
	// SIMBRIDGE_PATH is read.
	SearchPath []string

	// Modules registers module binaries by name. They are found before
	// anything on the search path.
	Modules map[string][]byte

	// Signatures maps module names to WIT text declaring their functions.
	// It takes precedence over .wit sidecar files.
	Signatures map[string]string

	// Stdout and Stderr receive the guests' WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// WazeroEngine owns the wazero runtime every module is instantiated in.
type WazeroEngine struct {
	runtime wazero.Runtime
	locator *Locator
	stdout  io.Writer
	stderr  io.Writer
}

// NewWazeroEngine creates an engine with default configuration.
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates the runtime and the host modules guests
// may import: wasi_snapshot_preview1 and simbridge.
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := InstantiateWASIWithAdapter(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	if _, err := InstantiateBridgeHost(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiate %s host module: %w", HostModuleName, err)
	}

	dirs := cfg.SearchPath
	if dirs == nil {
		dirs = SearchPathFromEnv()
	}

	Logger().Debug("engine started",
		zap.Strings("search_path", dirs),
		zap.Int("registered_modules", len(cfg.Modules)),
		zap.Uint32("memory_limit_pages", cfg.MemoryLimitPages))

	return &WazeroEngine{
		runtime: r,
		locator: NewLocator(dirs, cfg.Modules, cfg.Signatures),
		stdout:  orDiscard(cfg.Stdout),
		stderr:  orDiscard(cfg.Stderr),
	}, nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// SearchPath returns the directories modules are looked up in.
func (e *WazeroEngine) SearchPath() []string {
	return e.locator.Dirs()
}

// Locate finds a module binary without instantiating it.
func (e *WazeroEngine) Locate(name string) (*Source, error) {
	return e.locator.Find(name)
}

// LoadModule locates, compiles and instantiates the module called name.
// A *NotFoundError is returned when no source exists.
func (e *WazeroEngine) LoadModule(ctx context.Context, name string) (*WazeroModule, error) {
	src, err := e.locator.Find(name)
	if err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, src.Wasm)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", src.Origin, err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStdout(e.stdout).
		WithStderr(e.stderr)
	if _, ok := compiled.ExportedFunctions()[InitializeFunc]; ok {
		modCfg = modCfg.WithStartFunctions(InitializeFunc)
	} else {
		modCfg = modCfg.WithStartFunctions()
	}

	inst, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("instantiate %s: %w", src.Origin, err)
	}

	m := &WazeroModule{
		name:     name,
		origin:   src.Origin,
		wit:      src.WIT,
		compiled: compiled,
		instance: inst,
	}
	if mem := inst.Memory(); mem != nil {
		m.memory = &WazeroMemory{mem: mem}
	}
	for _, n := range allocatorNames {
		if fn := inst.ExportedFunction(n); fn != nil {
			m.allocFn = fn
			m.simpleAlloc = len(fn.Definition().ParamTypes()) == 1
			break
		}
	}

	Logger().Debug("module loaded",
		zap.String("module", name),
		zap.String("origin", src.Origin),
		zap.Bool("has_memory", m.memory != nil),
		zap.Bool("has_allocator", m.allocFn != nil))
	return m, nil
}

// Close releases the runtime and every module instantiated in it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Export kinds reported by WazeroModule.ExportKind.
const (
	ExportNone     = ""
	ExportFunction = "function"
	ExportMemory   = "memory"
	ExportGlobal   = "global"
)

// WazeroModule is one instantiated guest module.
type WazeroModule struct {
	name        string
	origin      string
	wit         string
	compiled    wazero.CompiledModule
	instance    api.Module
	memory      *WazeroMemory
	allocFn     api.Function
	simpleAlloc bool
}

func (m *WazeroModule) Name() string { return m.name }

// Origin is the file the module was read from, or OriginMemory.
func (m *WazeroModule) Origin() string { return m.origin }

// WIT returns the module's WIT signature text, if any was found.
func (m *WazeroModule) WIT() string { return m.wit }

// Memory returns the guest's linear memory, or nil if it exports none.
func (m *WazeroModule) Memory() simbridge.Memory {
	if m.memory == nil {
		return nil
	}
	return m.memory
}

// HasAllocator reports whether the guest exports an allocator.
func (m *WazeroModule) HasAllocator() bool { return m.allocFn != nil }

// Allocator returns an allocator bound to ctx, or nil if the guest has none.
func (m *WazeroModule) Allocator(ctx context.Context) simbridge.Allocator {
	if m.allocFn == nil {
		return nil
	}
	return &wazeroAllocator{ctx: ctx, allocFn: m.allocFn, simple: m.simpleAlloc}
}

// ExportedFunction returns the exported function called name, or nil.
func (m *WazeroModule) ExportedFunction(name string) api.Function {
	return m.instance.ExportedFunction(name)
}

// ExportKind reports what kind of export name is.
func (m *WazeroModule) ExportKind(name string) string {
	if _, ok := m.compiled.ExportedFunctions()[name]; ok {
		return ExportFunction
	}
	if _, ok := m.compiled.ExportedMemories()[name]; ok {
		return ExportMemory
	}
	if m.instance.ExportedGlobal(name) != nil {
		return ExportGlobal
	}
	return ExportNone
}

// FunctionExport is a callable export. A function exported under several
// names appears once per name.
type FunctionExport struct {
	Name       string
	Definition api.FunctionDefinition
}

// Functions lists the callable exports sorted by name, leaving out the
// allocator, post-return, release and initialization exports.
func (m *WazeroModule) Functions() []FunctionExport {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		if isInternalExport(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]FunctionExport, 0, len(names))
	for _, name := range names {
		out = append(out, FunctionExport{Name: name, Definition: defs[name]})
	}
	return out
}

func isInternalExport(name string) bool {
	if name == InitializeFunc || name == ReleaseHandle {
		return true
	}
	for _, n := range allocatorNames {
		if name == n {
			return true
		}
	}
	return strings.HasPrefix(name, CabiPostPrefix)
}

// PostReturn runs cabi_post_<function> with the function's flat results,
// if the guest exports it.
func (m *WazeroModule) PostReturn(ctx context.Context, function string, results []uint64) error {
	fn := m.instance.ExportedFunction(CabiPostPrefix + function)
	if fn == nil {
		return nil
	}
	n := len(fn.Definition().ParamTypes())
	if n > len(results) {
		return fmt.Errorf("%s%s expects %d params, have %d results", CabiPostPrefix, function, n, len(results))
	}
	_, err := fn.Call(ctx, results[:n]...)
	return err
}

// ReleaseHandle passes handle to the guest's release_handle export.
// It reports false when the guest does not export one.
func (m *WazeroModule) ReleaseHandle(ctx context.Context, handle uint32) (bool, error) {
	fn := m.instance.ExportedFunction(ReleaseHandle)
	if fn == nil {
		return false, nil
	}
	if _, err := fn.Call(ctx, api.EncodeU32(handle)); err != nil {
		return true, fmt.Errorf("%s(%d): %w", ReleaseHandle, handle, err)
	}
	return true, nil
}

// Close closes the module instance.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.instance.Close(ctx)
}
