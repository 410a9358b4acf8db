package block

import "fmt"

// Walk visits root and its descendants in pre-order. Returning false from fn
// stops the walk.
func Walk(root *Block, fn func(b *Block) bool) {
	if root == nil {
		return
	}
	stack := []*Block{root}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(b) {
			return
		}
		for i := len(b.Slots) - 1; i >= 0; i-- {
			if c := b.Slots[i].Block; c != nil {
				stack = append(stack, c)
			}
		}
	}
}

// Find returns the block with the given id.
func Find(root *Block, id string) *Block {
	var found *Block
	Walk(root, func(b *Block) bool {
		if b.ID == id {
			found = b
			return false
		}
		return true
	})
	return found
}

// Attach places child into the named slot of parent, replacing any occupant,
// and brings the child's depth and input counts in line with its new
// position. It returns the previous occupant.
func Attach(parent *Block, slot string, child *Block) (*Block, error) {
	s := parent.Slot(slot)
	if s == nil {
		return nil, fmt.Errorf("%s block has no slot %q", parent.Type, slot)
	}
	if child != nil && Find(child, parent.ID) != nil {
		return nil, fmt.Errorf("attaching %s under %s would create a cycle", child.ShortID(), parent.ShortID())
	}
	prev := s.Block
	s.Block = child
	if child != nil {
		setDepths(child, parent.Depth+1)
		Propagate(child, SlotInputCount(s, parent.InputCount))
	}
	return prev, nil
}

// Detach removes the block with the given id from the tree under root and
// returns it. The root itself cannot be detached.
func Detach(root *Block, id string) (*Block, bool) {
	var removed *Block
	Walk(root, func(b *Block) bool {
		for _, s := range b.Slots {
			if s.Block != nil && s.Block.ID == id {
				removed = s.Block
				s.Block = nil
				return false
			}
		}
		return true
	})
	if removed == nil {
		return nil, false
	}
	setDepths(removed, 0)
	return removed, true
}

// Clone returns a deep copy of root in which every block has a fresh id.
// Errors and execution traces are not copied.
func Clone(root *Block) *Block {
	if root == nil {
		return nil
	}
	c := &Block{
		ID:            NewID(),
		Type:          root.Type,
		Name:          root.Name,
		InputCount:    root.InputCount,
		Depth:         root.Depth,
		Collapsed:     root.Collapsed,
		HasBreakpoint: root.HasBreakpoint,
	}
	for _, p := range root.Params {
		cp := *p
		c.Params = append(c.Params, &cp)
	}
	for _, s := range root.Slots {
		cs := *s
		cs.Block = Clone(s.Block)
		c.Slots = append(c.Slots, &cs)
	}
	return c
}

// SetDepths assigns depth to root and derives the depth of every descendant.
func SetDepths(root *Block) {
	setDepths(root, 0)
}

func setDepths(root *Block, depth int) {
	if root == nil {
		return
	}
	root.Depth = depth
	Walk(root, func(b *Block) bool {
		for _, s := range b.Slots {
			if s.Block != nil {
				s.Block.Depth = b.Depth + 1
			}
		}
		return true
	})
}

// Breakpoints returns the ids of every block in the tree whose breakpoint flag
// is set.
func Breakpoints(root *Block) []string {
	var ids []string
	Walk(root, func(b *Block) bool {
		if b.HasBreakpoint {
			ids = append(ids, b.ID)
		}
		return true
	})
	return ids
}
