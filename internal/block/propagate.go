package block

// SlotInputCount applies a slot's arity rule to its parent's input count.
func SlotInputCount(s *Slot, parentCount int) int {
	switch {
	case s.InputSet != nil:
		return *s.InputSet
	case s.InputMod != nil:
		return parentCount + *s.InputMod
	default:
		return parentCount
	}
}

// Propagate sets root's input count and re-derives the input count of every
// block below it from the slot arity rules. It only writes InputCount and is
// idempotent. The walk uses an explicit stack so tree depth is bounded only by
// memory.
func Propagate(root *Block, count int) {
	if root == nil {
		return
	}
	root.InputCount = count
	stack := []*Block{root}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := len(b.Slots) - 1; i >= 0; i-- {
			s := b.Slots[i]
			if s.Block == nil {
				continue
			}
			s.Block.InputCount = SlotInputCount(s, b.InputCount)
			stack = append(stack, s.Block)
		}
	}
}
