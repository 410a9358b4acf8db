// Package block defines the block tree that describes a primitive recursive
// function, the per-type registry that gives each block its meaning, and the
// tree-wide passes that keep a tree consistent (arity propagation and
// validation).
package block

import "github.com/google/uuid"

// Type identifies the operation a block performs. The set is closed; see Types.
type Type string

// Block types.
const (
	TypeZero               Type = "zero"
	TypeSuccessor          Type = "successor"
	TypeProjection         Type = "projection"
	TypeComposition        Type = "composition"
	TypePrimitiveRecursion Type = "primitive_recursion"
	TypeMinimization       Type = "minimization"
	TypeCustom             Type = "custom"
)

// Types returns every block type in palette order.
func Types() []Type {
	return []Type{
		TypeZero,
		TypeSuccessor,
		TypeProjection,
		TypeComposition,
		TypePrimitiveRecursion,
		TypeMinimization,
		TypeCustom,
	}
}

// Block is one node of a function tree.
type Block struct {
	ID     string
	Type   Type
	Name   string // display label; identity of a Custom block
	Slots  []*Slot
	Params []*Param

	// InputCount is derived by Propagate and must never be authored directly.
	InputCount int
	Depth      int

	Collapsed     bool
	HasBreakpoint bool

	// Errors is rewritten wholesale by Validate.
	Errors []string

	// LatestInput and LatestOutput record the most recent evaluation of this
	// block. Evaluation never reads them.
	LatestInput  []int
	LatestOutput *int
}

// Slot is a named child position of a block.
type Slot struct {
	Name            string
	Block           *Block
	InputDescriptor int

	// InputSet fixes the child's input count. InputMod offsets the parent's
	// input count. With neither set the child inherits the parent's count.
	InputSet *int
	InputMod *int
}

// Param is a named integer parameter of a block.
type Param struct {
	Name  string
	Value int
	Min   int
	Max   int // 0 means unbounded
}

// NewID returns a fresh block identifier.
func NewID() string {
	return uuid.New().String()
}

// Slot returns the slot with the given name, or nil.
func (b *Block) Slot(name string) *Slot {
	for _, s := range b.Slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Child returns the block occupying the named slot, or nil when the slot is
// empty or absent.
func (b *Block) Child(name string) *Block {
	if s := b.Slot(name); s != nil {
		return s.Block
	}
	return nil
}

// Param returns the named parameter.
func (b *Block) Param(name string) (*Param, bool) {
	for _, p := range b.Params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ParamValue returns the named parameter's value, or def when it is absent.
func (b *Block) ParamValue(name string, def int) int {
	if p, ok := b.Param(name); ok {
		return p.Value
	}
	return def
}

// Label returns the name shown for the block: its Name for custom blocks and
// the registry label otherwise.
func (b *Block) Label() string {
	if b.Type == TypeCustom && b.Name != "" {
		return b.Name
	}
	if def, ok := Lookup(b.Type); ok {
		return def.Label
	}
	return string(b.Type)
}

// ShortID returns the first eight characters of the id for log and display
// output.
func (b *Block) ShortID() string {
	if len(b.ID) > 8 {
		return b.ID[:8]
	}
	return b.ID
}

func intPtr(v int) *int { return &v }
