package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/registry"
	"github.com/signalsfoundry/orrery/timectrl"
)

type options struct {
	duration    time.Duration
	fps         int
	accelerated bool
	every       time.Duration
	registry    string
	timing      string
	focus       string
	closeAfter  time.Duration
}

func main() {
	var opts options
	flag.DurationVar(&opts.duration, "duration", 10*time.Second, "total simulation duration")
	flag.IntVar(&opts.fps, "fps", 60, "frames per second")
	flag.BoolVar(&opts.accelerated, "accelerated", true, "run in accelerated mode (vs real-time)")
	flag.DurationVar(&opts.every, "every", time.Second, "print interval in simulated time")
	flag.StringVar(&opts.registry, "registry", "", "YAML or JSON body registry (empty uses the built-in solar system)")
	flag.StringVar(&opts.timing, "timing", "wallclock", "satellite time base: wallclock or scaled")
	flag.StringVar(&opts.focus, "focus", "", "body to focus on at startup")
	flag.DurationVar(&opts.closeAfter, "close-after", 0, "close the focus view after this much simulated time (0 keeps it open)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logging.NewFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer, log logging.Logger) error {
	if opts.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", opts.fps)
	}
	timing, err := core.ParseSatelliteTiming(opts.timing)
	if err != nil {
		return err
	}

	reg := registry.SolarSystem()
	if opts.registry != "" {
		reg = registry.New()
		if _, err := registry.LoadFile(reg, opts.registry); err != nil {
			return err
		}
	}

	engine, err := core.NewEngine(reg,
		core.WithSatelliteTiming(timing),
		core.WithLogger(log),
	)
	if err != nil {
		return err
	}
	if opts.focus != "" {
		if err := engine.Controller.Focus(opts.focus); err != nil {
			return err
		}
	}

	mode := timectrl.RealTime
	if opts.accelerated {
		mode = timectrl.Accelerated
	}
	start := time.Now().UTC()
	tc := timectrl.NewTimeController(start, time.Second/time.Duration(opts.fps), mode)

	var nextPrint time.Duration
	closed := false
	tc.AddListener(func(elapsed time.Duration, now time.Time) {
		snap := engine.Step(elapsed)

		if opts.closeAfter > 0 && !closed && elapsed >= opts.closeAfter {
			closed = engine.Controller.Close()
		}
		if elapsed < nextPrint {
			return
		}
		nextPrint = elapsed + opts.every
		printSnapshot(out, now, snap)
	})

	fmt.Fprintf(out, "Starting simulation: duration=%s, fps=%d, mode=%v, bodies=%d\n",
		opts.duration, opts.fps, mode, len(engine.Scene.Bodies()))
	if err := tc.Run(ctx, opts.duration); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Fprintf(out, "Simulation complete after %d frames.\n", engine.Frame())
	return nil
}

func printSnapshot(out io.Writer, now time.Time, snap core.Snapshot) {
	focus := ""
	if snap.Focused != "" {
		focus = " focus=" + snap.Focused
	}
	fmt.Fprintf(out, "[%s] frame=%d camera=%s%s @ (%.1f, %.1f, %.1f)\n",
		now.Format(time.RFC3339),
		snap.Frame,
		snap.Mode,
		focus,
		snap.Camera.Position.X, snap.Camera.Position.Y, snap.Camera.Position.Z,
	)
	for _, b := range snap.Bodies {
		fmt.Fprintf(out, "  %-8s (%8.2f, %6.2f, %8.2f) orbit=%6.3f spin=%6.3f moons=%d\n",
			b.Name, b.Position.X, b.Position.Y, b.Position.Z, b.OrbitAngle, b.SpinAngle, len(b.Satellites))
	}
}
