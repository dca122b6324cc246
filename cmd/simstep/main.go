package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/simbridge/engine"
	"github.com/wippyai/simbridge/runtime"
)

type options struct {
	scenario    string
	module      string
	function    string
	doubles     string
	ints        string
	strs        string
	path        string
	doublesOut  int
	intsOut     int
	steps       int
	dt          float64
	retain      bool
	time        bool
	list        bool
	interactive bool
	verbose     bool
}

func main() {
	var o options
	flag.StringVar(&o.scenario, "scenario", "", "YAML scenario file")
	flag.StringVar(&o.module, "module", "", "Module to call")
	flag.StringVar(&o.function, "func", "", "Function to call")
	flag.StringVar(&o.doubles, "d", "", "Double arguments (comma-separated)")
	flag.StringVar(&o.ints, "n", "", "Integer arguments (comma-separated)")
	flag.StringVar(&o.strs, "s", "", "String arguments (comma-separated)")
	flag.IntVar(&o.doublesOut, "out-d", 0, "Number of double results")
	flag.IntVar(&o.intsOut, "out-i", 0, "Number of integer results")
	flag.BoolVar(&o.retain, "retain", false, "Keep a persistent object across steps")
	flag.BoolVar(&o.time, "time", false, "Prepend the simulated time to the doubles")
	flag.StringVar(&o.path, "path", "", "Module search path (overrides "+engine.SearchPathEnv+")")
	flag.IntVar(&o.steps, "steps", 1, "Number of steps")
	flag.Float64Var(&o.dt, "dt", 1, "Step size")
	flag.BoolVar(&o.list, "list", false, "List the module's functions and exit")
	flag.BoolVar(&o.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&o.verbose, "v", false, "Log bridge activity to stderr")
	flag.Parse()

	if o.scenario == "" && o.module == "" {
		fmt.Fprintln(os.Stderr, "Usage: simstep -module <name> -func <name> [-d 1,2] [-n 3] [-s a,b] [-out-d N] [-out-i N] [-steps N]")
		fmt.Fprintln(os.Stderr, "       simstep -scenario <file.yaml>")
		fmt.Fprintln(os.Stderr, "       simstep -module <name> -list")
		fmt.Fprintln(os.Stderr, "       simstep -module <name> -i  (interactive mode)")
		os.Exit(1)
	}

	if o.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			engine.SetLogger(l)
			defer func() { _ = l.Sync() }()
		}
	}

	if err := run(context.Background(), o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	var (
		sc  *Scenario
		err error
	)
	if o.scenario != "" {
		if sc, err = loadScenario(o.scenario); err != nil {
			return err
		}
	}

	cfg := runtime.Config{Stdout: os.Stdout, Stderr: os.Stderr}
	switch {
	case o.path != "":
		cfg.SearchPath = filepath.SplitList(o.path)
	case sc != nil && len(sc.Path) > 0:
		cfg.SearchPath = sc.Path
	}
	bridge := runtime.New(cfg)
	defer bridge.Close(ctx)

	styled := term.IsTerminal(int(os.Stdout.Fd()))

	switch {
	case o.list:
		info, err := bridge.Describe(ctx, o.module)
		if err != nil {
			return err
		}
		return writeListing(os.Stdout, info, styled)
	case o.interactive:
		return runInteractive(bridge, o.module)
	}

	if sc == nil {
		if sc, err = o.singleScenario(); err != nil {
			return err
		}
	}
	return runScenario(ctx, runtime.NewHost(bridge, nil), sc, os.Stdout, styled)
}

// singleScenario builds a one-exchange scenario from the command line.
func (o *options) singleScenario() (*Scenario, error) {
	if o.function == "" {
		return nil, fmt.Errorf("-func is required")
	}
	doubles, err := parseDoubles(o.doubles)
	if err != nil {
		return nil, err
	}
	ints, err := parseInts(o.ints)
	if err != nil {
		return nil, err
	}
	sc := &Scenario{
		Exchanges: []Exchange{{
			Module:     o.module,
			Function:   o.function,
			Doubles:    doubles,
			Ints:       ints,
			Strings:    parseStrings(o.strs),
			DoublesOut: o.doublesOut,
			IntsOut:    o.intsOut,
			Time:       o.time,
			Retain:     o.retain,
		}},
		Steps: o.steps,
		DT:    o.dt,
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func runScenario(ctx context.Context, h *runtime.Host, sc *Scenario, w io.Writer, styled bool) error {
	var rep reporter = &textReporter{w: w}
	if styled {
		rep = &tableReporter{w: w}
	}
	if err := simulate(ctx, h, sc, rep); err != nil {
		return err
	}
	if n := h.Bridge().Stats().Exchanges; n > 0 {
		engine.Logger().Debug("simulation finished",
			zap.Int("steps", sc.Steps),
			zap.Int("exchanges", n),
			zap.String("modules", strings.Join(sc.modules(), ",")))
	}
	return nil
}
