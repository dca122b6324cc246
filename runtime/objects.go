package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/simbridge/engine"
	"github.com/wippyai/simbridge/errors"
	"github.com/wippyai/simbridge/resource"
)

// NewObject creates a persistent object. Its first retained exchange sees
// no foreign handle.
func (b *Bridge) NewObject() resource.Handle {
	return b.objects.Create()
}

// Object returns a snapshot of a persistent object.
func (b *Bridge) Object(h resource.Handle) (resource.Object, bool) {
	return b.objects.Get(h)
}

// Subscribe registers an observer for object lifecycle events and returns
// a function removing it.
func (b *Bridge) Subscribe(o resource.Observer) func() {
	return b.objects.Subscribe(o)
}

// FreeObject frees a persistent object and releases its foreign handle
// through the owning module's release_handle export, once. Freeing an
// unknown or already freed object is a usage error.
func (b *Bridge) FreeObject(ctx context.Context, h resource.Handle) error {
	f, err := b.objects.Free(h)
	if err != nil {
		return err
	}
	if !f.Present() || b.resolver == nil {
		return nil
	}

	m, ok := b.resolver.lookup(f.Owner)
	if !ok {
		return nil
	}
	released, err := m.wasm.ReleaseHandle(ctx, f.Value)
	if err != nil {
		return errors.New(errors.PhaseRegistry, errors.KindForeignRuntime).
			Call(f.Owner, engine.ReleaseHandle).
			Detail("release handle %d of object %d", f.Value, h).
			Cause(err).
			Build()
	}
	if released {
		engine.Logger().Debug("foreign handle released",
			zap.Uint32("object", uint32(h)),
			zap.Stringer("foreign", f))
	}
	return nil
}

func logObjectEvent(e resource.Event) {
	engine.Logger().Debug("object "+e.Type.String(),
		zap.Uint32("object", uint32(e.Handle)),
		zap.Stringer("foreign", e.Foreign),
		zap.Stringer("previous", e.Previous))
}
