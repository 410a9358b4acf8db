package block

import "fmt"

// ErrorsInChildren is the marker a block receives when any block below it has
// errors. The child messages themselves stay on the children.
const ErrorsInChildren = "Error(s) in children"

// Validate recomputes Errors on b and every block below it and returns b's
// errors. Occupied slots are validated first; each empty slot adds a
// "Missing <slot>." message; then generic parameter checks and the type's own
// validator run. Validate never fails, and evaluation never reads its result.
func Validate(b *Block) []string {
	if b == nil {
		return nil
	}

	var errs []string
	childErrors := false
	for _, s := range b.Slots {
		if s.Block == nil {
			errs = append(errs, fmt.Sprintf("Missing %s.", s.Name))
			continue
		}
		if len(Validate(s.Block)) > 0 {
			childErrors = true
		}
	}
	if childErrors {
		errs = append(errs, ErrorsInChildren)
	}

	def, ok := Lookup(b.Type)
	if !ok {
		errs = append(errs, fmt.Sprintf("Unknown block type %q.", b.Type))
		b.Errors = errs
		return errs
	}
	errs = append(errs, validateParams(b, def)...)
	if def.Validate != nil {
		errs = append(errs, def.Validate(b)...)
	}
	b.Errors = errs
	return errs
}

func validateParams(b *Block, def *Definition) []string {
	var errs []string
	for _, ps := range def.Params {
		p, ok := b.Param(ps.Name)
		if !ok {
			errs = append(errs, fmt.Sprintf("Missing parameter %s.", ps.Name))
			continue
		}
		if p.Value < p.Min {
			errs = append(errs, fmt.Sprintf("Parameter %s must be at least %d.", p.Name, p.Min))
		}
		if p.Max > 0 && p.Value > p.Max {
			errs = append(errs, fmt.Sprintf("Parameter %s must be at most %d.", p.Name, p.Max))
		}
	}
	return errs
}

// HasErrors reports whether any block in the tree carries errors after the
// last Validate.
func HasErrors(root *Block) bool {
	found := false
	Walk(root, func(b *Block) bool {
		if len(b.Errors) > 0 {
			found = true
			return false
		}
		return true
	})
	return found
}
