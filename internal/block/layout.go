package block

import "fmt"

// ReconcileSlots builds the slots for layout, carrying over the occupant of
// any old slot whose name appears in the new layout. Occupants of slots that
// disappear are dropped.
func ReconcileSlots(old []*Slot, layout []SlotSpec) []*Slot {
	occupants := make(map[string]*Block, len(old))
	for _, s := range old {
		if s.Block != nil {
			occupants[s.Name] = s.Block
		}
	}

	slots := make([]*Slot, 0, len(layout))
	for _, spec := range layout {
		slots = append(slots, &Slot{
			Name:            spec.Name,
			Block:           occupants[spec.Name],
			InputDescriptor: spec.InputDescriptor,
			InputSet:        spec.InputSet,
			InputMod:        spec.InputMod,
		})
	}
	return slots
}

// SetParam sets a parameter value. When the block's layout depends on its
// parameters the slots are reconciled, the block gets a fresh id, and input
// counts are re-derived for its subtree.
func SetParam(b *Block, name string, value int) error {
	p, ok := b.Param(name)
	if !ok {
		return fmt.Errorf("%s block has no parameter %q", b.Type, name)
	}
	if p.Value == value {
		return nil
	}
	p.Value = value

	def, ok := Lookup(b.Type)
	if !ok || !def.Dynamic {
		return nil
	}
	Reshape(b)
	return nil
}

// Reshape recomputes b's slot layout from its registry definition.
func Reshape(b *Block) {
	def, ok := Lookup(b.Type)
	if !ok {
		return
	}
	b.Slots = ReconcileSlots(b.Slots, def.Layout(b))
	b.ID = NewID()
	for _, s := range b.Slots {
		if s.Block != nil {
			setDepths(s.Block, b.Depth+1)
		}
	}
	Propagate(b, b.InputCount)
}
