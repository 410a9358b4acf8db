package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/config"
	"github.com/npratt/prfkit/internal/controller"
	"github.com/npratt/prfkit/internal/eval"
	"github.com/npratt/prfkit/internal/events"
	"github.com/npratt/prfkit/internal/remote"
	"github.com/npratt/prfkit/internal/shutdown"
	"github.com/npratt/prfkit/internal/treefile"
	"github.com/npratt/prfkit/internal/tui"
)

// haltTimeout is how long a halted run gets to unwind after SIGINT/SIGTERM
// before its context is cancelled.
const haltTimeout = 5 * time.Second

// stepOptions are the per-invocation settings of the step command.
type stepOptions struct {
	Speed       controller.Speed
	Breakpoints []string
	TUI         bool
	JSON        bool
	Listen      bool // serve the control socket at cfg.Paths.Socket
}

// stepRun wires one stepped run: router, optional trace sink, controller and
// the chosen front end.
type stepRun struct {
	cfg    *config.Config
	tree   *treefile.Tree
	inputs []int
	opts   stepOptions
	logger *slog.Logger
	out    io.Writer

	router  *events.Router
	ctl     *controller.Controller
	logSink *events.LogSink
}

func newStepRun(cfg *config.Config, tree *treefile.Tree, inputs []int, opts stepOptions, logger *slog.Logger, out io.Writer) (*stepRun, error) {
	engine := eval.New(
		eval.WithMinimizationLimit(cfg.Engine.MinimizationLimit),
		eval.WithLogger(logger),
	)
	router := events.NewRouter(cfg.Stepper.EventBuffer)
	ctl := controller.New(cfg, engine, router, logger)

	for _, id := range opts.Breakpoints {
		if block.Find(tree.Root, id) == nil {
			router.Close()
			return nil, fmt.Errorf("breakpoint %q: no block with that id", id)
		}
		ctl.SetBreakpoint(id, true)
	}

	return &stepRun{
		cfg:    cfg,
		tree:   tree,
		inputs: inputs,
		opts:   opts,
		logger: logger,
		out:    out,
		router: router,
		ctl:    ctl,
	}, nil
}

// startTrace records every event of the run to cfg.Paths.Trace when set.
func (s *stepRun) startTrace(ctx context.Context) error {
	if s.cfg.Paths.Trace == "" {
		return nil
	}
	s.logSink = events.NewLogSink(s.cfg.Paths.Trace)
	if err := s.logSink.Start(ctx, s.router.SubscribeBuffered(s.cfg.Stepper.EventBuffer)); err != nil {
		s.logSink = nil
		return fmt.Errorf("start trace sink: %w", err)
	}
	s.logger.Debug("recording trace", "path", s.cfg.Paths.Trace)
	return nil
}

// closeWhenDone closes the router once the current run has finished, which
// ends every subscriber after its last buffered event.
func (s *stepRun) closeWhenDone() {
	done := s.ctl.Done()
	go func() {
		<-done
		s.router.Close()
	}()
}

// finish waits for the trace sink to flush.
func (s *stepRun) finish() {
	s.router.Close()
	if s.logSink != nil {
		if err := s.logSink.Stop(); err != nil {
			s.logger.Warn("trace sink stop failed", "error", err)
		}
	}
	if n := s.router.Dropped(); n > 0 {
		s.logger.Warn("events dropped by slow subscribers", "count", n)
	}
}

// runTUI drives the run from the terminal debugger. The debugger stays open
// after the run ends until the user quits.
func (s *stepRun) runTUI(ctx context.Context) error {
	tuiEvents := s.router.SubscribeBuffered(s.cfg.Stepper.EventBuffer)
	app := tui.New(tuiEvents,
		tui.WithTree(s.tree.Root),
		tui.WithStepper(s.ctl),
		tui.WithOnQuit(s.ctl.Halt),
		tui.WithOutput(s.out),
	)

	if err := s.ctl.Start(ctx, s.tree.Root, s.inputs, s.opts.Speed); err != nil {
		return err
	}
	s.closeWhenDone()

	tuiErr := app.Run()

	s.ctl.Halt()
	<-s.ctl.Done()
	s.finish()

	if tuiErr != nil {
		return tuiErr
	}
	return runError(s.ctl.Result())
}

// runPlain prints one line per event (or a JSON summary) and halts the run on
// SIGINT/SIGTERM.
func (s *stepRun) runPlain(ctx context.Context) error {
	var wg sync.WaitGroup
	if !s.opts.JSON {
		lines := s.router.SubscribeBuffered(s.cfg.Stepper.EventBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range lines {
				if _, ok := ev.(*events.StateChangedEvent); ok {
					continue
				}
				if line := events.FormatWithTimestamp(ev); line != "" {
					_, _ = fmt.Fprintln(s.out, line)
				}
			}
		}()
	}

	// Without a keyboard or a control socket nobody can resume, so
	// breakpoints are reported and passed.
	if !s.opts.Listen {
		pauses := s.router.SubscribeTypes(s.cfg.Stepper.EventBuffer, events.EventRunPaused)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range pauses {
				s.ctl.Resume()
			}
		}()
	}

	err := shutdown.RunWithGracefulShutdown(ctx, s.logger, haltTimeout, s.ctl,
		func(runCtx context.Context) error {
			if err := s.ctl.Start(runCtx, s.tree.Root, s.inputs, s.opts.Speed); err != nil {
				return err
			}
			s.closeWhenDone()
			_, err := s.ctl.Wait(runCtx)
			return err
		},
	)
	<-s.ctl.Done()
	s.finish()
	wg.Wait()

	r := s.ctl.Result()
	if r.State == "" && err != nil && !errors.Is(err, eval.ErrHalted) {
		// the run never started
		return err
	}
	if s.opts.JSON {
		out := evalOutput{Result: r.Value, Steps: r.Steps, State: string(r.State)}
		if r.Err != nil {
			out.Error = r.Err.Error()
		}
		if werr := writeJSON(s.out, out); werr != nil {
			return werr
		}
	}
	return runError(r)
}

// runError maps a finished run to the command's error. A halt is a normal
// way to end a stepped run and is not an error.
func runError(r controller.Result) error {
	switch r.State {
	case controller.StateErrored:
		return fmt.Errorf("evaluate: %w", r.Err)
	default:
		return nil
	}
}

// runStep runs tree under the step controller.
func runStep(ctx context.Context, cfg *config.Config, tree *treefile.Tree, inputs []int, opts stepOptions, logger *slog.Logger, out io.Writer) error {
	s, err := newStepRun(cfg, tree, inputs, opts, logger, out)
	if err != nil {
		return err
	}

	sinkCtx, sinkCancel := context.WithCancel(ctx)
	defer sinkCancel()
	if err := s.startTrace(sinkCtx); err != nil {
		s.router.Close()
		return err
	}

	if opts.Listen {
		srv := remote.New(cfg.Paths.Socket, s.ctl, logger)
		srvCtx, srvCancel := context.WithCancel(ctx)
		srvDone := make(chan struct{})
		go func() {
			defer close(srvDone)
			if err := srv.Start(srvCtx); err != nil {
				logger.Error("control server error", "error", err)
			}
		}()
		defer func() {
			srvCancel()
			<-srvDone
		}()
	}

	if opts.TUI {
		return s.runTUI(ctx)
	}
	return s.runPlain(ctx)
}
