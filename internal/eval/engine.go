// Package eval evaluates block trees, either to completion or one block
// completion at a time through a step callback.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/npratt/prfkit/internal/block"
)

// ErrHalted is returned when a run is deliberately stopped. It is not an
// evaluation failure and callers should not report it as one.
var ErrHalted = errors.New("evaluation halted")

// Step describes one completed block evaluation.
type Step struct {
	Seq    int // 1-based position in the run
	Block  *block.Block
	Inputs []int
	Result int
}

// StepFunc is called after each block completes. It may block for as long as
// it likes; a non-nil return aborts the whole evaluation with that error.
type StepFunc func(ctx context.Context, step Step) error

// Engine evaluates block trees.
type Engine struct {
	minimizationLimit int
	logger            *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinimizationLimit overrides block.DefaultMinimizationLimit.
func WithMinimizationLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minimizationLimit = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		minimizationLimit: block.DefaultMinimizationLimit,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinimizationLimit returns the configured convergence ceiling.
func (e *Engine) MinimizationLimit() int {
	return e.minimizationLimit
}

// Evaluate computes root applied to inputs. Malformed blocks are reported as
// *block.EvalError when evaluation reaches them. Cancelling ctx stops the
// walk at the next block boundary with ctx.Err().
func (e *Engine) Evaluate(ctx context.Context, root *block.Block, inputs []int) (int, error) {
	return e.run(ctx, root, inputs, nil)
}

// EvaluateStepped is Evaluate with onStep invoked after every block reached
// through the recursive walk completes. Notifications are post-order: a block
// reports only after all the evaluations it depends on have reported. The
// top-level call itself does not report; its result is the return value.
func (e *Engine) EvaluateStepped(ctx context.Context, root *block.Block, inputs []int, onStep StepFunc) (int, error) {
	return e.run(ctx, root, inputs, onStep)
}

func (e *Engine) run(ctx context.Context, root *block.Block, inputs []int, onStep StepFunc) (int, error) {
	w := &walker{ctx: ctx, engine: e, onStep: onStep}
	if root == nil {
		return 0, block.MissingBlockError(nil, "")
	}
	e.logger.Debug("evaluation started",
		"block_id", root.ID,
		"type", root.Type,
		"inputs", inputs,
		"stepped", onStep != nil,
	)

	v, err := w.eval(root, append([]int(nil), inputs...))
	if err != nil {
		e.logger.Debug("evaluation stopped", "block_id", root.ID, "steps", w.steps, "error", err)
		return 0, err
	}
	e.logger.Debug("evaluation finished", "block_id", root.ID, "steps", w.steps, "result", v)
	return v, nil
}

// walker carries the state of a single evaluation and is the block.Evaluator
// handed to registry rules.
type walker struct {
	ctx    context.Context
	engine *Engine
	onStep StepFunc
	steps  int
}

var _ block.Evaluator = (*walker)(nil)

// Eval evaluates a child block and reports its completion.
func (w *walker) Eval(b *block.Block, inputs []int) (int, error) {
	v, err := w.eval(b, inputs)
	if err != nil {
		return 0, err
	}
	if w.onStep == nil {
		return v, nil
	}
	w.steps++
	step := Step{
		Seq:    w.steps,
		Block:  b,
		Inputs: append([]int(nil), inputs...),
		Result: v,
	}
	if err := w.onStep(w.ctx, step); err != nil {
		return 0, err
	}
	return v, nil
}

func (w *walker) MinimizationLimit() int {
	return w.engine.minimizationLimit
}

func (w *walker) eval(b *block.Block, inputs []int) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	if b == nil {
		return 0, block.MissingBlockError(nil, "")
	}
	def, ok := block.Lookup(b.Type)
	if !ok {
		return 0, &block.EvalError{
			BlockID: b.ID,
			Type:    b.Type,
			Kind:    block.ErrUnknownType,
			Message: fmt.Sprintf("no rule for %q", b.Type),
		}
	}

	v, err := def.Eval(w, b, inputs)
	if err != nil {
		return 0, err
	}
	b.LatestInput = append([]int(nil), inputs...)
	out := v
	b.LatestOutput = &out
	return v, nil
}
