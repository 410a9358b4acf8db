package block_test

import (
	"testing"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/testutil"
)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	t.Run("composition with a missing g2", func(t *testing.T) {
		comp := testutil.Comp(testutil.Zero(), testutil.Zero(), nil)
		block.Propagate(comp, 1)

		errs := block.Validate(comp)

		if !contains(errs, "Missing g2.") {
			t.Errorf("errors = %v, want Missing g2.", errs)
		}
		if contains(errs, "Missing g1.") || contains(errs, "Missing f.") {
			t.Errorf("unexpected missing-slot errors: %v", errs)
		}
		if len(comp.Errors) != len(errs) {
			t.Error("Errors field not updated")
		}
	})

	t.Run("composition arity out of range", func(t *testing.T) {
		tests := []struct {
			m    int
			want string
		}{
			{-1, "Parameter m must be at least 1."},
			{0, "Parameter m must be at least 1."},
			{block.MaxCompositionArity + 1, "Parameter m must be at most 64."},
		}
		for _, tt := range tests {
			comp := testutil.Comp(testutil.Zero())
			if err := block.SetParam(comp, block.ParamArity, tt.m); err != nil {
				t.Fatalf("SetParam: %v", err)
			}
			block.Propagate(comp, 1)
			if errs := block.Validate(comp); !contains(errs, tt.want) {
				t.Errorf("m=%d: errors = %v, want %q", tt.m, errs, tt.want)
			}
			if n := len(comp.Slots); n > block.MaxCompositionArity+1 {
				t.Errorf("m=%d: layout has %d slots", tt.m, n)
			}
		}
	})

	t.Run("child errors become a single marker", func(t *testing.T) {
		// successor receives 2 inputs
		comp := testutil.Comp(testutil.Zero(), testutil.Succ())
		block.Propagate(comp, 2)

		errs := block.Validate(comp)

		if len(errs) != 1 || errs[0] != block.ErrorsInChildren {
			t.Errorf("errors = %v", errs)
		}
		succ := comp.Child("g1")
		if len(succ.Errors) != 1 || succ.Errors[0] != "Successor requires exactly 1 input, has 2." {
			t.Errorf("successor errors = %v", succ.Errors)
		}
	})

	t.Run("errors are recomputed wholesale", func(t *testing.T) {
		root := testutil.Identity()
		block.Propagate(root, 0)
		if len(block.Validate(root)) == 0 {
			t.Fatal("expected errors with zero inputs")
		}

		block.Propagate(root, 1)
		if errs := block.Validate(root); len(errs) != 0 {
			t.Errorf("errors = %v, want none", errs)
		}
		if block.HasErrors(root) {
			t.Error("stale errors left in the tree")
		}
	})

	t.Run("type validators", func(t *testing.T) {
		tests := []struct {
			name   string
			b      *block.Block
			inputs int
			want   string
		}{
			{"projection out of range", testutil.Proj(3), 2, "Index 3 exceeds input count 2."},
			{"projection no inputs", testutil.Proj(1), 0, "Projection requires at least 1 input."},
			{"projection below min", testutil.Proj(0), 2, "Parameter i must be at least 1."},
			{"recursion no inputs", testutil.PrimRec(testutil.Zero(), testutil.Zero()), 0, "Primitive recursion requires at least 1 input."},
			{"unnamed custom", block.MustNew(block.TypeCustom), 1, "Custom block needs a name."},
			{"empty custom", testutil.Custom("f", nil), 1, "Missing Function."},
			{"empty minimization", testutil.Min(nil), 1, "Missing f."},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				block.Propagate(tt.b, tt.inputs)
				if errs := block.Validate(tt.b); !contains(errs, tt.want) {
					t.Errorf("errors = %v, want %q", errs, tt.want)
				}
			})
		}
	})

	t.Run("missing parameter", func(t *testing.T) {
		p := testutil.Proj(1)
		p.Params = nil
		block.Propagate(p, 1)
		if errs := block.Validate(p); !contains(errs, "Missing parameter i.") {
			t.Errorf("errors = %v", errs)
		}
	})

	t.Run("nil block", func(t *testing.T) {
		if errs := block.Validate(nil); errs != nil {
			t.Errorf("errors = %v", errs)
		}
	})
}
