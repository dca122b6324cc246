package runtime

import (
	"context"
	"fmt"
	"os"

	"github.com/wippyai/simbridge/engine"
	"github.com/wippyai/simbridge/resource"
)

// FatalFunc receives the single fatal report of a failed operation. The
// simulation host is expected not to return control to the bridge.
type FatalFunc func(format string, args ...any)

// Abort is the default FatalFunc. It logs the report, prints it to stderr
// and exits with status 1.
func Abort(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	engine.Logger().Error(msg)
	_ = engine.Logger().Sync()
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// Host is the interface the simulation uses: every failure is reported to
// the FatalFunc exactly once, formatted as
//
//	simbridge: <module>.<function>: <error>
//
// and the Host ignores all calls made after that.
type Host struct {
	bridge *Bridge
	fatal  FatalFunc
	failed bool
}

// NewHost wraps b. A nil fatal uses Abort.
func NewHost(b *Bridge, fatal FatalFunc) *Host {
	if fatal == nil {
		fatal = Abort
	}
	return &Host{bridge: b, fatal: fatal}
}

// Bridge returns the wrapped bridge.
func (h *Host) Bridge() *Bridge {
	return h.bridge
}

// Failed reports whether a fatal report has been delivered.
func (h *Host) Failed() bool {
	return h.failed
}

// Exchange performs req. There is no status: failures go to the FatalFunc.
func (h *Host) Exchange(ctx context.Context, req *Request) {
	if h.failed {
		return
	}
	if err := h.bridge.Exchange(ctx, req); err != nil {
		h.fail(req.Module, req.Function, err)
	}
}

// NewObject creates a persistent object, or returns 0 after a failure.
func (h *Host) NewObject() resource.Handle {
	if h.failed {
		return 0
	}
	return h.bridge.NewObject()
}

// FreeObject frees a persistent object.
func (h *Host) FreeObject(ctx context.Context, obj resource.Handle) {
	if h.failed {
		return
	}
	module := "objects"
	if o, ok := h.bridge.Object(obj); ok && o.Foreign.Owner != "" {
		module = o.Foreign.Owner
	}
	if err := h.bridge.FreeObject(ctx, obj); err != nil {
		h.fail(module, "free", err)
	}
}

// Close finalizes the bridge.
func (h *Host) Close(ctx context.Context) {
	if err := h.bridge.Close(ctx); err != nil && !h.failed {
		h.fail("bridge", "close", err)
	}
}

func (h *Host) fail(module, function string, err error) {
	h.failed = true
	h.fatal("simbridge: %s.%s: %v", module, function, err)
}
