// Package controller drives a stepped evaluation on its own goroutine and
// lets callers pause, resume, halt and single-step it at block boundaries.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/config"
	"github.com/npratt/prfkit/internal/eval"
	"github.com/npratt/prfkit/internal/events"
)

// ErrBusy is returned by Start while a previous run is still in progress.
var ErrBusy = errors.New("controller: a run is already in progress")

// State represents the controller's current state.
type State string

// Controller states. Completed, Halted and Errored are terminal for a run;
// a new Start leaves them.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateHalted    State = "halted"
	StateErrored   State = "errored"
)

// Active reports whether a run is in progress in this state.
func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}

// Speed selects the delay inserted between steps.
type Speed string

// Speeds.
const (
	SpeedNone Speed = "none"
	SpeedFast Speed = "fast"
	SpeedSlow Speed = "slow"
)

// ParseSpeed converts a config or flag value to a Speed.
func ParseSpeed(s string) (Speed, error) {
	switch Speed(s) {
	case SpeedNone, SpeedFast, SpeedSlow:
		return Speed(s), nil
	case "":
		return SpeedNone, nil
	default:
		return "", fmt.Errorf("unknown speed %q (want none, fast or slow)", s)
	}
}

// Next cycles none -> fast -> slow -> none.
func (s Speed) Next() Speed {
	switch s {
	case SpeedNone:
		return SpeedFast
	case SpeedFast:
		return SpeedSlow
	default:
		return SpeedNone
	}
}

// Result is the outcome of one run.
type Result struct {
	Value    int
	Steps    int
	State    State
	Err      error
	Duration time.Duration
}

// Controller runs stepped evaluations. All methods are safe for concurrent
// use; only one run may be active at a time.
type Controller struct {
	engine *eval.Engine
	router *events.Router
	logger *slog.Logger

	fastDelay time.Duration
	slowDelay time.Duration

	state State
	mu    sync.RWMutex

	// Per-run settings and progress, guarded by mu.
	runID             string
	speed             Speed
	breakpoints       map[string]bool
	ignoreBreakpoints bool
	singleStep        bool
	steps             int
	halt              chan struct{}
	haltOnce          *sync.Once
	done              chan struct{}
	result            Result

	// Control signals for pause/resume
	pauseSignal  chan struct{}
	resumeSignal chan struct{}
}

// New creates a Controller. cfg may be nil to use config.Default().
func New(cfg *config.Config, engine *eval.Engine, router *events.Router, logger *slog.Logger) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = eval.New(
			eval.WithMinimizationLimit(cfg.Engine.MinimizationLimit),
			eval.WithLogger(logger),
		)
	}
	speed, err := ParseSpeed(cfg.Stepper.Speed)
	if err != nil {
		speed = SpeedNone
	}
	done := make(chan struct{})
	close(done)
	return &Controller{
		engine:            engine,
		router:            router,
		logger:            logger,
		fastDelay:         cfg.Stepper.FastDelay,
		slowDelay:         cfg.Stepper.SlowDelay,
		state:             StateIdle,
		speed:             speed,
		breakpoints:       make(map[string]bool),
		ignoreBreakpoints: cfg.Stepper.IgnoreBreakpoints,
		done:              done,
		pauseSignal:       make(chan struct{}, 1),
		resumeSignal:      make(chan struct{}, 1),
	}
}

// Start begins evaluating root on inputs in the background and returns
// immediately. Use Wait or Done to observe completion. Blocks flagged as
// breakpoints in the tree are added to the breakpoint set, where
// SetBreakpoint can clear them.
func (c *Controller) Start(ctx context.Context, root *block.Block, inputs []int, speed Speed) error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return ErrBusy
	}
	for _, id := range block.Breakpoints(root) {
		c.breakpoints[id] = true
	}
	if speed == "" {
		speed = c.speed
	}
	c.runID = uuid.NewString()
	c.speed = speed
	c.singleStep = false
	c.steps = 0
	c.halt = make(chan struct{})
	c.haltOnce = &sync.Once{}
	c.done = make(chan struct{})
	c.result = Result{}
	drain(c.pauseSignal)
	drain(c.resumeSignal)
	runID := c.runID
	done := c.done
	c.setStateLocked(StateRunning)
	c.mu.Unlock()

	rootID := ""
	if root != nil {
		rootID = root.ID
	}
	c.emit(&events.RunStartEvent{
		BaseEvent: events.NewControllerEvent(events.EventRunStart, runID),
		RootID:    rootID,
		Inputs:    append([]int(nil), inputs...),
		Speed:     string(speed),
	})
	c.logger.Info("run started", "run_id", runID, "root_id", rootID, "inputs", inputs, "speed", speed)

	go c.run(ctx, root, append([]int(nil), inputs...), done)
	return nil
}

// Run starts a run and blocks until it finishes.
func (c *Controller) Run(ctx context.Context, root *block.Block, inputs []int, speed Speed) (int, error) {
	if err := c.Start(ctx, root, inputs, speed); err != nil {
		return 0, err
	}
	return c.Wait(ctx)
}

// Wait blocks until the current run finishes and returns its value. A halted
// run returns eval.ErrHalted.
func (c *Controller) Wait(ctx context.Context) (int, error) {
	select {
	case <-c.Done():
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	r := c.Result()
	return r.Value, r.Err
}

// Done returns a channel closed when the current run finishes. Before the
// first run it is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

// Result returns the outcome of the last finished run.
func (c *Controller) Result() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

func (c *Controller) run(ctx context.Context, root *block.Block, inputs []int, done chan struct{}) {
	start := time.Now()
	v, err := c.engine.EvaluateStepped(ctx, root, inputs, c.onStep)
	if err == nil && c.halted() {
		err = eval.ErrHalted
	}

	c.mu.RLock()
	runID, steps := c.runID, c.steps
	c.mu.RUnlock()

	res := Result{Value: v, Steps: steps, Err: err, Duration: time.Since(start)}
	switch {
	case err == nil:
		res.State = StateCompleted
	case errors.Is(err, eval.ErrHalted), errors.Is(err, context.Canceled):
		res.State = StateHalted
		res.Value = 0
		res.Err = eval.ErrHalted
	default:
		res.State = StateErrored
		res.Value = 0
	}

	c.mu.Lock()
	c.result = res
	c.mu.Unlock()

	switch res.State {
	case StateCompleted:
		c.logger.Info("run completed", "run_id", runID, "result", v, "steps", steps)
		c.emit(&events.RunCompletedEvent{
			BaseEvent:  events.NewControllerEvent(events.EventRunCompleted, runID),
			Result:     v,
			Steps:      steps,
			DurationMs: res.Duration.Milliseconds(),
		})
	case StateHalted:
		c.logger.Info("run halted", "run_id", runID, "steps", steps)
		c.emit(&events.RunHaltedEvent{
			BaseEvent: events.NewControllerEvent(events.EventRunHalted, runID),
			Steps:     steps,
		})
	default:
		c.logger.Warn("run failed", "run_id", runID, "steps", steps, "error", err)
		ev := &events.ErrorEvent{
			BaseEvent: events.NewControllerEvent(events.EventError, runID),
			Message:   err.Error(),
			Severity:  events.SeverityError,
		}
		var evalErr *block.EvalError
		if errors.As(err, &evalErr) {
			ev.BlockID = evalErr.BlockID
		}
		c.emit(ev)
	}

	// Start may begin a new run once the state is terminal, so only the
	// captured done channel is touched after this point.
	c.setState(res.State)
	close(done)
}

// onStep runs on the evaluation goroutine after every block completion.
// A halted run delivers no further notifications.
func (c *Controller) onStep(ctx context.Context, step eval.Step) error {
	if c.halted() {
		return eval.ErrHalted
	}

	c.mu.Lock()
	c.steps = step.Seq
	runID := c.runID
	atBreakpoint := !c.ignoreBreakpoints && c.breakpoints[step.Block.ID]
	single := c.singleStep
	c.singleStep = false
	c.mu.Unlock()

	c.emit(&events.StepEvent{
		BaseEvent:  events.NewEngineEvent(events.EventStep, runID),
		Seq:        step.Seq,
		BlockID:    step.Block.ID,
		BlockType:  string(step.Block.Type),
		Label:      step.Block.Label(),
		Depth:      step.Block.Depth,
		Inputs:     step.Inputs,
		Output:     step.Result,
		Breakpoint: atBreakpoint,
	})

	switch {
	case single:
		return c.waitPaused(ctx, events.PauseSingleStep, step)
	case atBreakpoint:
		return c.waitPaused(ctx, events.PauseBreakpoint, step)
	}
	select {
	case <-c.pauseSignal:
		return c.waitPaused(ctx, events.PauseManual, step)
	default:
	}
	return c.delay(ctx, step)
}

// delay holds the evaluation for the speed's delay. A pause or halt cuts
// the wait short.
func (c *Controller) delay(ctx context.Context, step eval.Step) error {
	d := c.stepDelay()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-c.haltChan():
		return eval.ErrHalted
	case <-c.pauseSignal:
		return c.waitPaused(ctx, events.PauseManual, step)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitPaused blocks the evaluation until Resume, SingleStep or Halt. Resume
// moves the state back to running itself, so only one resume is accepted per
// pause; signals left over from earlier requests are discarded here.
func (c *Controller) waitPaused(ctx context.Context, reason string, step eval.Step) error {
	c.mu.Lock()
	drain(c.pauseSignal)
	drain(c.resumeSignal)
	c.setStateLocked(StatePaused)
	runID := c.runID
	c.mu.Unlock()

	c.emit(&events.RunPausedEvent{
		BaseEvent: events.NewControllerEvent(events.EventRunPaused, runID),
		Reason:    reason,
		BlockID:   step.Block.ID,
		Seq:       step.Seq,
	})
	c.logger.Debug("run paused", "reason", reason, "seq", step.Seq, "block_id", step.Block.ID)

	select {
	case <-c.resumeSignal:
	case <-c.haltChan():
		return eval.ErrHalted
	case <-ctx.Done():
		return ctx.Err()
	}
	// Halt and resume may both be ready; halt wins.
	if c.halted() {
		return eval.ErrHalted
	}

	c.emit(&events.RunResumedEvent{
		BaseEvent: events.NewControllerEvent(events.EventRunResumed, runID),
	})
	return nil
}

func (c *Controller) stepDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.speed {
	case SpeedFast:
		return c.fastDelay
	case SpeedSlow:
		return c.slowDelay
	default:
		return 0
	}
}

// Pause requests a pause at the next step boundary. No-op unless running.
func (c *Controller) Pause() {
	if c.State() != StateRunning {
		return
	}
	select {
	case c.pauseSignal <- struct{}{}:
		c.logger.Debug("pause requested")
	default:
		// Signal already pending
	}
}

// Resume continues a paused run. No-op unless paused: the state leaves
// paused here, so a second Resume before the run moves on does nothing.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return
	}
	c.setStateLocked(StateRunning)
	select {
	case c.resumeSignal <- struct{}{}:
	default:
		// Signal already pending
	}
	c.logger.Debug("resume requested")
}

// TogglePause pauses a running run or resumes a paused one.
func (c *Controller) TogglePause() {
	switch c.State() {
	case StateRunning:
		c.Pause()
	case StatePaused:
		c.Resume()
	}
}

// SingleStep lets exactly one more block complete and then pauses,
// regardless of breakpoints. When paused it resumes for that one step.
func (c *Controller) SingleStep() {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return
	}
	c.singleStep = true
	paused := c.state == StatePaused
	c.mu.Unlock()

	if paused {
		c.Resume()
	}
}

// Halt aborts the current run at the next step boundary, force-resuming a
// pending pause. Safe to call more than once.
func (c *Controller) Halt() {
	c.mu.RLock()
	active := c.state.Active()
	once, ch := c.haltOnce, c.halt
	c.mu.RUnlock()
	if !active || once == nil {
		return
	}
	once.Do(func() {
		c.logger.Info("halt requested", "run_id", c.RunID())
		close(ch)
	})
}

func (c *Controller) haltChan() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.halt
}

func (c *Controller) halted() bool {
	select {
	case <-c.haltChan():
		return true
	default:
		return false
	}
}

// SetBreakpoint adds or removes a block id from the breakpoint set.
func (c *Controller) SetBreakpoint(id string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enabled {
		c.breakpoints[id] = true
	} else {
		delete(c.breakpoints, id)
	}
}

// Breakpoints returns the breakpoint set in sorted order.
func (c *Controller) Breakpoints() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.breakpoints))
	for id := range c.breakpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetIgnoreBreakpoints makes runs pass through breakpoints without pausing.
func (c *Controller) SetIgnoreBreakpoints(ignore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignoreBreakpoints = ignore
}

// IgnoringBreakpoints reports the current ignore-breakpoints setting.
func (c *Controller) IgnoringBreakpoints() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ignoreBreakpoints
}

// SetSpeed changes the delay between steps, taking effect at the next step.
func (c *Controller) SetSpeed(s Speed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = s
}

// Speed returns the current speed.
func (c *Controller) Speed() Speed {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// Steps returns the number of step notifications in the current run.
func (c *Controller) Steps() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.steps
}

// RunID identifies the current or last run.
func (c *Controller) RunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runID
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.getState()
}

// getState returns the current state (thread-safe).
func (c *Controller) getState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// setState updates the state and reports the transition.
func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(s)
}

// setStateLocked is setState with mu already held. The event is emitted
// under the lock so transitions reach subscribers in the order they happen;
// Emit never blocks.
func (c *Controller) setStateLocked(s State) {
	from := c.state
	c.state = s
	if from == s {
		return
	}
	c.emit(&events.StateChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventStateChanged, c.runID),
		From:      string(from),
		To:        string(s),
	})
}

// emit sends an event to the router if configured.
func (c *Controller) emit(event events.Event) {
	if c.router != nil {
		c.router.Emit(event)
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
