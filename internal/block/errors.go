package block

import (
	"errors"
	"fmt"
)

// Evaluation error kinds. Every *EvalError wraps exactly one of these.
var (
	ErrEmptySlot     = errors.New("empty slot")
	ErrArity         = errors.New("input arity mismatch")
	ErrParameter     = errors.New("invalid parameter")
	ErrNoConvergence = errors.New("minimization did not converge")
	ErrUnknownType   = errors.New("unknown block type")
	ErrOverflow      = errors.New("result out of range")
)

// EvalError reports the block at which evaluation failed.
type EvalError struct {
	BlockID string
	Type    Type
	Kind    error
	Message string
}

func (e *EvalError) Error() string {
	id := e.BlockID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s [%s]: %s", e.Type, id, e.Message)
}

// Unwrap exposes the error kind to errors.Is.
func (e *EvalError) Unwrap() error {
	return e.Kind
}

// evalErrorf builds an *EvalError for b.
func evalErrorf(b *Block, kind error, format string, args ...any) error {
	return &EvalError{
		BlockID: b.ID,
		Type:    b.Type,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// MissingBlockError is returned when evaluation is asked to evaluate an empty
// slot. parent may be nil for the root.
func MissingBlockError(parent *Block, slot string) error {
	if parent == nil {
		return &EvalError{Kind: ErrEmptySlot, Message: "no block to evaluate"}
	}
	return evalErrorf(parent, ErrEmptySlot, "missing %s", slot)
}
