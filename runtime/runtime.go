package runtime

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/simbridge/engine"
	"github.com/wippyai/simbridge/errors"
	"github.com/wippyai/simbridge/resource"
)

// Config holds bridge configuration. The zero value searches SIMBRIDGE_PATH.
type Config struct {
	// Stdout and Stderr receive guest WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Modules registers module binaries by name ahead of the search path.
	Modules map[string][]byte

	// Signatures maps module names to WIT function declarations.
	Signatures map[string]string

	// SearchPath overrides SIMBRIDGE_PATH when non-nil.
	SearchPath []string

	// MemoryLimitPages caps guest memory (64KiB pages). 0 means no cap.
	MemoryLimitPages uint32
}

var newEngine = engine.NewWazeroEngineWithConfig

// Stats reports resolver and registry counters.
type Stats struct {
	// Imports counts modules loaded; cached lookups do not count.
	Imports int
	// Resolutions counts functions resolved; cached lookups do not count.
	Resolutions int
	// Exchanges counts foreign calls that completed successfully.
	Exchanges int
	// Objects counts persistent objects that are not freed.
	Objects int
}

// Bridge connects the host simulation to foreign functions. The embedded
// runtime is started by the first exchange and lives until Close.
//
// A Bridge is not safe for concurrent use.
type Bridge struct {
	engine    *engine.WazeroEngine
	initErr   error
	resolver  *resolver
	objects   *resource.Table
	cfg       Config
	exchanges int
	closed    bool
}

// New creates a bridge. Nothing is started until the first exchange.
func New(cfg Config) *Bridge {
	b := &Bridge{
		cfg:     cfg,
		objects: resource.NewTable(),
	}
	b.objects.Subscribe(resource.ObserverFunc(logObjectEvent))
	return b
}

// init starts the runtime once. A failure is remembered and returned by
// every later call.
func (b *Bridge) init(ctx context.Context) error {
	if b.closed {
		return errors.New(errors.PhaseInit, errors.KindUsage).Detail("bridge is closed").Build()
	}
	if b.initErr != nil {
		return b.initErr
	}
	if b.engine != nil {
		return nil
	}

	eng, err := newEngine(ctx, &engine.Config{
		MemoryLimitPages: b.cfg.MemoryLimitPages,
		SearchPath:       b.cfg.SearchPath,
		Modules:          b.cfg.Modules,
		Signatures:       b.cfg.Signatures,
		Stdout:           b.cfg.Stdout,
		Stderr:           b.cfg.Stderr,
	})
	if err != nil {
		b.initErr = errors.Initialization("start runtime", err)
		engine.Logger().Error("bridge initialization failed", zap.Error(err))
		return b.initErr
	}

	b.engine = eng
	b.resolver = newResolver(eng)
	engine.Logger().Info("bridge initialized", zap.Strings("search_path", eng.SearchPath()))
	return nil
}

// Initialized reports whether the runtime has been started.
func (b *Bridge) Initialized() bool {
	return b.engine != nil
}

// SearchPath returns the directories modules are looked up in. It starts
// the runtime if needed.
func (b *Bridge) SearchPath(ctx context.Context) ([]string, error) {
	if err := b.init(ctx); err != nil {
		return nil, err
	}
	return b.engine.SearchPath(), nil
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() Stats {
	s := Stats{Exchanges: b.exchanges, Objects: b.objects.Len()}
	if b.resolver != nil {
		s.Imports = b.resolver.imports
		s.Resolutions = b.resolver.resolutions
	}
	return s
}

// Close shuts the runtime down. Foreign handles are released only by
// FreeObject: objects still live at Close are dropped with their guests,
// and release_handle is not called for them. Close is safe to call more
// than once; later exchanges fail with a usage error.
func (b *Bridge) Close(ctx context.Context) error {
	if b.closed {
		return nil
	}

	if n := b.objects.Len(); n > 0 {
		engine.Logger().Debug("closing with live objects", zap.Int("objects", n))
	}

	b.closed = true
	if b.engine == nil {
		return nil
	}
	err := b.engine.Close(ctx)
	b.engine = nil
	b.resolver = nil
	engine.Logger().Info("bridge closed")
	return err
}

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Default returns the process-wide bridge, configured from the environment.
func Default() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		defaultBridge = New(Config{})
	}
	return defaultBridge
}

// Finalize closes the process-wide bridge if it was ever created.
func Finalize(ctx context.Context) error {
	defaultMu.Lock()
	b := defaultBridge
	defaultMu.Unlock()
	if b == nil {
		return nil
	}
	return b.Close(ctx)
}
