package testutil

import (
	"fmt"

	"github.com/npratt/prfkit/internal/block"
)

// Tree builders. Each returns a freshly allocated block with its children
// attached; callers run block.Propagate on the final root.

// Zero returns a Zero block.
func Zero() *block.Block { return block.MustNew(block.TypeZero) }

// Succ returns a Successor block.
func Succ() *block.Block { return block.MustNew(block.TypeSuccessor) }

// Proj returns a Projection block selecting the i-th input.
func Proj(i int) *block.Block {
	b := block.MustNew(block.TypeProjection)
	mustSetParam(b, block.ParamIndex, i)
	return b
}

// Comp returns a Composition of f over gs. A nil entry leaves that slot empty.
func Comp(f *block.Block, gs ...*block.Block) *block.Block {
	b := block.MustNew(block.TypeComposition)
	mustSetParam(b, block.ParamArity, len(gs))
	mustAttach(b, block.SlotF, f)
	for i, g := range gs {
		mustAttach(b, block.GSlotName(i+1), g)
	}
	return b
}

// PrimRec returns a Primitive Recursion block.
func PrimRec(base, rec *block.Block) *block.Block {
	b := block.MustNew(block.TypePrimitiveRecursion)
	mustAttach(b, block.SlotBase, base)
	mustAttach(b, block.SlotRecursive, rec)
	return b
}

// Min returns a Minimization block over f.
func Min(f *block.Block) *block.Block {
	b := block.MustNew(block.TypeMinimization)
	mustAttach(b, block.SlotF, f)
	return b
}

// Custom returns a named Custom block wrapping fn.
func Custom(name string, fn *block.Block) *block.Block {
	b := block.MustNew(block.TypeCustom)
	b.Name = name
	mustAttach(b, block.SlotFunction, fn)
	return b
}

// Identity is id(n) = n built as PR{base=Zero, rec=Succ(z)}. One input.
func Identity() *block.Block {
	return PrimRec(Zero(), Comp(Succ(), Proj(2)))
}

// Pred is pred(n) = n-1 (0 for 0). One input.
func Pred() *block.Block {
	return PrimRec(Zero(), Proj(1))
}

// Sub is sub(a, b) = a - b truncated at 0. Two inputs.
func Sub() *block.Block {
	return PrimRec(Proj(1), Comp(Pred(), Proj(3)))
}

// Add is add(a, b) = a + b. Two inputs.
func Add() *block.Block {
	return PrimRec(Proj(1), Comp(Succ(), Proj(3)))
}

// Never is a two-input function that is never zero.
func Never() *block.Block {
	return Comp(Succ(), Zero())
}

func mustSetParam(b *block.Block, name string, v int) {
	if err := block.SetParam(b, name, v); err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
}

func mustAttach(parent *block.Block, slot string, child *block.Block) {
	if child == nil {
		return
	}
	if _, err := block.Attach(parent, slot, child); err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
}

// IdentityJSON is a tree document describing Identity with one input.
const IdentityJSON = `{
  "inputs": 1,
  "root": {
    "type": "primitive_recursion",
    "slots": {
      "Base Case": {"type": "zero"},
      "Recursive Case": {
        "type": "composition",
        "params": {"m": 1},
        "slots": {
          "f": {"type": "successor"},
          "g1": {"type": "projection", "params": {"i": 2}}
        }
      }
    }
  }
}`

// AddYAML is a tree document that defines add as a library function and
// calls it through a Custom block.
const AddYAML = `inputs: 2
functions:
  add:
    type: primitive_recursion
    slots:
      Base Case:
        type: projection
        params: {i: 1}
      Recursive Case:
        type: composition
        params: {m: 1}
        slots:
          f: {type: successor}
          g1:
            type: projection
            params: {i: 3}
root:
  type: custom
  name: add
  ref: add
`
