package main

import (
	"context"
	"errors"

	"github.com/wippyai/simbridge/resource"
	"github.com/wippyai/simbridge/runtime"
)

var errStopped = errors.New("simulation stopped after a fatal error")

// Row is the outcome of one exchange at one step.
type Row struct {
	Label   string
	Doubles []float64
	Ints    []int32
	Step    int
	Time    float64
}

type reporter interface {
	Row(Row)
	Flush() error
}

// simulate runs every exchange of sc once per step. Retained exchanges get
// one persistent object each, freed when the run ends.
func simulate(ctx context.Context, h *runtime.Host, sc *Scenario, rep reporter) error {
	objects := make([]resource.Handle, len(sc.Exchanges))
	for i := range sc.Exchanges {
		if sc.Exchanges[i].Retain {
			objects[i] = h.NewObject()
		}
	}
	defer func() {
		for _, obj := range objects {
			if obj != 0 {
				h.FreeObject(ctx, obj)
			}
		}
	}()

	for step := 0; step < sc.Steps; step++ {
		t := sc.StartTime + float64(step)*sc.DT
		for i := range sc.Exchanges {
			e := &sc.Exchanges[i]
			req := &runtime.Request{
				Module:     e.Module,
				Function:   e.Function,
				Doubles:    e.Doubles,
				Ints:       e.Ints,
				Strings:    e.Strings,
				DoublesOut: make([]float64, e.DoublesOut),
				IntsOut:    make([]int32, e.IntsOut),
				Object:     objects[i],
				Retain:     e.Retain,
			}
			if e.Time {
				req.Doubles = append([]float64{t}, e.Doubles...)
			}

			h.Exchange(ctx, req)
			if h.Failed() {
				return errStopped
			}
			rep.Row(Row{
				Label:   e.label(),
				Doubles: req.DoublesOut,
				Ints:    req.IntsOut,
				Step:    step,
				Time:    t,
			})
		}
	}
	return rep.Flush()
}
