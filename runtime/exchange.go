package runtime

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/simbridge/engine"
	"github.com/wippyai/simbridge/errors"
	"github.com/wippyai/simbridge/resource"
	"github.com/wippyai/simbridge/transcoder"
)

// Request is one exchange with a foreign function. The length of each
// slice is the declared count of its group; DoublesOut and IntsOut are
// caller-owned buffers filled only when the exchange succeeds.
type Request struct {
	Module   string
	Function string

	Doubles []float64
	Ints    []int32
	Strings []string

	DoublesOut []float64
	IntsOut    []int32

	// Object identifies the persistent object whose foreign handle is
	// threaded through the call. It requires Retain.
	Object resource.Handle
	Retain bool
}

func (r *Request) shape() transcoder.Shape {
	n := 0
	for _, s := range r.Strings {
		n += len(s)
	}
	return transcoder.Shape{
		Doubles:     len(r.Doubles),
		Ints:        len(r.Ints),
		Strings:     len(r.Strings),
		StringBytes: n,
		DoublesOut:  len(r.DoublesOut),
		IntsOut:     len(r.IntsOut),
		Retain:      r.Retain,
	}
}

// Exchange calls req.Function in req.Module with the request's inputs and
// writes its results into the output buffers. On error nothing is written
// and the object's stored handle is unchanged.
func (b *Bridge) Exchange(ctx context.Context, req *Request) error {
	if err := b.exchange(ctx, req); err != nil {
		return errors.WithCall(err, req.Module, req.Function)
	}
	return nil
}

func (b *Bridge) exchange(ctx context.Context, req *Request) error {
	if err := b.init(ctx); err != nil {
		return err
	}

	var obj resource.Object
	switch {
	case req.Retain && req.Object == 0:
		return errors.Usage("retention requires an object")
	case !req.Retain && req.Object != 0:
		return errors.Usage("object %d passed without retention", req.Object)
	case req.Retain:
		var err error
		if obj, err = b.objects.Usable(req.Object); err != nil {
			return err
		}
		if obj.Foreign.Present() && obj.Foreign.Owner != req.Module {
			return errors.Usage("object %d holds a handle owned by module %q", req.Object, obj.Foreign.Owner)
		}
	}

	fn, err := b.resolver.function(ctx, req.Module, req.Function)
	if err != nil {
		return err
	}

	shape := req.shape()
	sig, err := fn.module.signature(req.Function)
	if err != nil {
		return err
	}
	if sig != nil {
		if err := checkSignature(sig, shape); err != nil {
			return err
		}
	}
	if err := transcoder.CheckParams(shape, fn.def.ParamTypes()); err != nil {
		return err
	}
	if err := transcoder.CheckResults(shape, fn.def.ResultTypes()); err != nil {
		return err
	}

	mem := fn.module.wasm.Memory()
	if shape.NeedsMemory() && mem == nil {
		return errors.New(errors.PhaseMarshal, errors.KindMarshal).
			Detail("module %q exports no memory", req.Module).
			Build()
	}

	params, err := transcoder.NewEncoder(mem, fn.module.wasm.Allocator(ctx)).Encode(&transcoder.Input{
		Doubles: req.Doubles,
		Ints:    req.Ints,
		Strings: req.Strings,
		Retain:  req.Retain,
		Present: obj.Foreign.Present(),
		Handle:  obj.Foreign.Value,
	})
	if err != nil {
		return err
	}

	raw, err := invoke(ctx, fn, params)
	if err != nil {
		return err
	}

	out, err := transcoder.NewDecoder(mem).Decode(shape, raw)
	if perr := fn.module.wasm.PostReturn(ctx, req.Function, raw); perr != nil && err == nil {
		err = errors.New(errors.PhaseInvoke, errors.KindForeignRuntime).
			Detail("post-return failed").
			Cause(perr).
			Build()
	}
	if err != nil {
		return err
	}

	out.CopyInto(req.DoublesOut, req.IntsOut)
	if req.Retain {
		if err := b.objects.Store(req.Object, resource.ForeignHandle(req.Module, out.Handle)); err != nil {
			return err
		}
	}
	b.exchanges++
	return nil
}

// invoke calls the foreign function. The results are copied out of the
// runtime's buffers.
func invoke(ctx context.Context, fn *function, params []uint64) ([]uint64, error) {
	res, err := fn.call.Call(ctx, params...)
	if err != nil {
		engine.Logger().Debug("foreign call failed", zap.String("function", fn.name), zap.Error(err))
		return nil, classifyCallError(err)
	}
	raw := make([]uint64, len(res))
	copy(raw, res)
	return raw, nil
}

func classifyCallError(err error) *errors.Error {
	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		return errors.New(errors.PhaseInvoke, errors.KindForeignRuntime).
			Detail("guest exited with code %d", exitErr.ExitCode()).
			Cause(err).
			Build()
	}
	var guestErr *engine.GuestError
	if stderrors.As(err, &guestErr) {
		return errors.New(errors.PhaseInvoke, errors.KindForeignRuntime).
			Detail("raised: %s", guestErr.Message).
			Cause(err).
			Build()
	}
	return errors.ForeignRuntime(err)
}
