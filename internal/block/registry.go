package block

import (
	"fmt"
	"math"
	"strconv"
)

// DefaultMinimizationLimit is the number of candidates a Minimization block
// tries before giving up.
const DefaultMinimizationLimit = 100

// MaxCompositionArity bounds the number of g slots a Composition may have.
const MaxCompositionArity = 64

// Slot names shared between layouts and evaluation rules.
const (
	SlotF         = "f"
	SlotBase      = "Base Case"
	SlotRecursive = "Recursive Case"
	SlotFunction  = "Function"
)

// Parameter names.
const (
	ParamIndex = "i"
	ParamArity = "m"
)

// Evaluator is the recursive entry point a Definition uses to evaluate child
// blocks. Implementations may suspend inside Eval.
type Evaluator interface {
	Eval(b *Block, inputs []int) (int, error)
	MinimizationLimit() int
}

// ParamSpec declares a parameter and its default.
type ParamSpec struct {
	Name    string
	Default int
	Min     int
	Max     int // 0 means unbounded
}

// SlotSpec declares one slot of a layout.
type SlotSpec struct {
	Name            string
	InputDescriptor int
	InputSet        *int
	InputMod        *int
}

// Definition is the registry entry for one block type.
type Definition struct {
	Type   Type
	Label  string
	Params []ParamSpec

	// Layout computes the slot layout from the block's current parameters.
	Layout func(b *Block) []SlotSpec
	// Dynamic is set when Layout depends on parameters.
	Dynamic bool

	Eval     func(ev Evaluator, b *Block, inputs []int) (int, error)
	Validate func(b *Block) []string
}

var registry = map[Type]*Definition{
	TypeZero: {
		Type:     TypeZero,
		Label:    "Zero",
		Layout:   noSlots,
		Eval:     evalZero,
		Validate: noErrors,
	},
	TypeSuccessor: {
		Type:     TypeSuccessor,
		Label:    "Successor",
		Layout:   noSlots,
		Eval:     evalSuccessor,
		Validate: validateSuccessor,
	},
	TypeProjection: {
		Type:     TypeProjection,
		Label:    "Projection",
		Params:   []ParamSpec{{Name: ParamIndex, Default: 1, Min: 1}},
		Layout:   noSlots,
		Eval:     evalProjection,
		Validate: validateProjection,
	},
	TypeComposition: {
		Type:     TypeComposition,
		Label:    "Composition",
		Params:   []ParamSpec{{Name: ParamArity, Default: 1, Min: 1, Max: MaxCompositionArity}},
		Layout:   compositionLayout,
		Dynamic:  true,
		Eval:     evalComposition,
		Validate: noErrors,
	},
	TypePrimitiveRecursion: {
		Type:  TypePrimitiveRecursion,
		Label: "Primitive Recursion",
		Layout: func(*Block) []SlotSpec {
			return []SlotSpec{
				{Name: SlotBase, InputDescriptor: DescriptorPlain, InputMod: intPtr(-1)},
				{Name: SlotRecursive, InputDescriptor: DescriptorRecursive, InputMod: intPtr(1)},
			}
		},
		Eval:     evalPrimitiveRecursion,
		Validate: validatePrimitiveRecursion,
	},
	TypeMinimization: {
		Type:  TypeMinimization,
		Label: "Minimization",
		Layout: func(*Block) []SlotSpec {
			return []SlotSpec{{Name: SlotF, InputDescriptor: DescriptorMinimized, InputMod: intPtr(1)}}
		},
		Eval:     evalMinimization,
		Validate: noErrors,
	},
	TypeCustom: {
		Type:  TypeCustom,
		Label: "Custom",
		Layout: func(*Block) []SlotSpec {
			return []SlotSpec{{Name: SlotFunction, InputDescriptor: DescriptorPlain}}
		},
		Eval:     evalCustom,
		Validate: validateCustom,
	},
}

// Lookup returns the definition for t.
func Lookup(t Type) (*Definition, bool) {
	def, ok := registry[t]
	return def, ok
}

// New creates a block of type t with default parameters and slots.
func New(t Type) (*Block, error) {
	def, ok := Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	b := &Block{ID: NewID(), Type: t}
	for _, ps := range def.Params {
		b.Params = append(b.Params, &Param{Name: ps.Name, Value: ps.Default, Min: ps.Min, Max: ps.Max})
	}
	b.Slots = ReconcileSlots(nil, def.Layout(b))
	return b, nil
}

// MustNew is New for callers that pass a known type.
func MustNew(t Type) *Block {
	b, err := New(t)
	if err != nil {
		panic(err)
	}
	return b
}

func noSlots(*Block) []SlotSpec { return nil }

func noErrors(*Block) []string { return nil }

// GSlotName returns the name of the i-th (1-based) composed function slot.
func GSlotName(i int) string {
	return "g" + strconv.Itoa(i)
}

func compositionLayout(b *Block) []SlotSpec {
	m := min(max(b.ParamValue(ParamArity, 0), 0), MaxCompositionArity)
	specs := make([]SlotSpec, 0, m+1)
	specs = append(specs, SlotSpec{Name: SlotF, InputDescriptor: DescriptorComposed, InputSet: intPtr(m)})
	for i := 1; i <= m; i++ {
		specs = append(specs, SlotSpec{Name: GSlotName(i), InputDescriptor: DescriptorPlain})
	}
	return specs
}

// Evaluation rules.

func evalZero(Evaluator, *Block, []int) (int, error) {
	return 0, nil
}

func evalSuccessor(_ Evaluator, b *Block, inputs []int) (int, error) {
	if len(inputs) != 1 {
		return 0, evalErrorf(b, ErrArity, "successor takes exactly 1 input, got %d", len(inputs))
	}
	if inputs[0] == math.MaxInt {
		return 0, evalErrorf(b, ErrOverflow, "successor of %d", inputs[0])
	}
	return inputs[0] + 1, nil
}

func evalProjection(_ Evaluator, b *Block, inputs []int) (int, error) {
	p, ok := b.Param(ParamIndex)
	if !ok {
		return 0, evalErrorf(b, ErrParameter, "missing parameter %s", ParamIndex)
	}
	if len(inputs) == 0 {
		return 0, evalErrorf(b, ErrArity, "projection needs at least 1 input")
	}
	if p.Value < 1 || p.Value > len(inputs) {
		return 0, evalErrorf(b, ErrParameter, "index %d out of range 1..%d", p.Value, len(inputs))
	}
	return inputs[p.Value-1], nil
}

// evalComposition evaluates g1..gm in order on the full input vector, then f
// on their results. The order is observable through step notifications.
func evalComposition(ev Evaluator, b *Block, inputs []int) (int, error) {
	p, ok := b.Param(ParamArity)
	if !ok {
		return 0, evalErrorf(b, ErrParameter, "missing parameter %s", ParamArity)
	}
	if p.Value < 1 || p.Value > MaxCompositionArity {
		return 0, evalErrorf(b, ErrParameter, "%s=%d out of range 1..%d", ParamArity, p.Value, MaxCompositionArity)
	}
	results := make([]int, 0, p.Value)
	for i := 1; i <= p.Value; i++ {
		name := GSlotName(i)
		g := b.Child(name)
		if g == nil {
			return 0, MissingBlockError(b, name)
		}
		v, err := ev.Eval(g, inputs)
		if err != nil {
			return 0, err
		}
		results = append(results, v)
	}
	f := b.Child(SlotF)
	if f == nil {
		return 0, MissingBlockError(b, SlotF)
	}
	return ev.Eval(f, results)
}

// evalPrimitiveRecursion treats the last input as the recursion variable n.
// For n > 0 it re-enters the same block with n-1, so one node notifies once
// per level.
func evalPrimitiveRecursion(ev Evaluator, b *Block, inputs []int) (int, error) {
	if len(inputs) == 0 {
		return 0, evalErrorf(b, ErrArity, "primitive recursion needs at least 1 input")
	}
	xs := inputs[:len(inputs)-1]
	n := inputs[len(inputs)-1]
	if n <= 0 {
		base := b.Child(SlotBase)
		if base == nil {
			return 0, MissingBlockError(b, SlotBase)
		}
		return ev.Eval(base, clone(xs))
	}
	rec := b.Child(SlotRecursive)
	if rec == nil {
		return 0, MissingBlockError(b, SlotRecursive)
	}
	prev := appendInts(xs, n-1)
	z, err := ev.Eval(b, prev)
	if err != nil {
		return 0, err
	}
	return ev.Eval(rec, appendInts(prev, z))
}

func evalMinimization(ev Evaluator, b *Block, inputs []int) (int, error) {
	f := b.Child(SlotF)
	if f == nil {
		return 0, MissingBlockError(b, SlotF)
	}
	limit := ev.MinimizationLimit()
	for n := 0; n < limit; n++ {
		v, err := ev.Eval(f, appendInts(inputs, n))
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return n, nil
		}
	}
	return 0, evalErrorf(b, ErrNoConvergence, "no zero found below %d", limit)
}

func evalCustom(ev Evaluator, b *Block, inputs []int) (int, error) {
	fn := b.Child(SlotFunction)
	if fn == nil {
		return 0, MissingBlockError(b, SlotFunction)
	}
	return ev.Eval(fn, inputs)
}

// Type-specific validators. Missing slots and child errors are handled by
// Validate before these run.

func validateSuccessor(b *Block) []string {
	if b.InputCount != 1 {
		return []string{fmt.Sprintf("Successor requires exactly 1 input, has %d.", b.InputCount)}
	}
	return nil
}

func validateProjection(b *Block) []string {
	p, ok := b.Param(ParamIndex)
	if !ok {
		return nil
	}
	switch {
	case b.InputCount == 0:
		return []string{"Projection requires at least 1 input."}
	case p.Value > b.InputCount:
		return []string{fmt.Sprintf("Index %d exceeds input count %d.", p.Value, b.InputCount)}
	}
	return nil
}

func validatePrimitiveRecursion(b *Block) []string {
	if b.InputCount < 1 {
		return []string{"Primitive recursion requires at least 1 input."}
	}
	return nil
}

func validateCustom(b *Block) []string {
	if b.Name == "" {
		return []string{"Custom block needs a name."}
	}
	return nil
}

// clone copies s so callees never share the caller's backing array.
func clone(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func appendInts(s []int, v ...int) []int {
	out := make([]int, len(s), len(s)+len(v))
	copy(out, s)
	return append(out, v...)
}
