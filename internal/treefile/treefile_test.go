package treefile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/eval"
	"github.com/npratt/prfkit/internal/testutil"
)

func evaluate(t *testing.T, root *block.Block, inputs ...int) int {
	t.Helper()
	v, err := eval.New().Evaluate(context.Background(), root, inputs)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	return v
}

func TestParseJSON(t *testing.T) {
	tree, err := Parse([]byte(testutil.IdentityJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tree.Inputs != 1 {
		t.Errorf("Inputs = %d, want 1", tree.Inputs)
	}
	if tree.Root.Type != block.TypePrimitiveRecursion {
		t.Fatalf("root type = %s", tree.Root.Type)
	}

	// Input counts match a tree built in code.
	want := testutil.Identity()
	block.Propagate(want, 1)
	testutil.AssertEqualInts(t, testutil.InputCounts(tree.Root), testutil.InputCounts(want))

	for _, n := range []int{0, 1, 5} {
		if got := evaluate(t, tree.Root, n); got != n {
			t.Errorf("identity(%d) = %d", n, got)
		}
	}
	if block.HasErrors(tree.Root) {
		t.Error("fresh tree should not carry errors")
	}
}

func TestParseYAMLWithLibrary(t *testing.T) {
	tree, err := Parse([]byte(testutil.AddYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := tree.Functions["add"]; !ok {
		t.Fatal("library function add missing")
	}
	if tree.Root.Type != block.TypeCustom || tree.Root.Name != "add" {
		t.Errorf("root = %s %q", tree.Root.Type, tree.Root.Name)
	}
	if got := evaluate(t, tree.Root, 4, 3); got != 7 {
		t.Errorf("add(4, 3) = %d, want 7", got)
	}

	// The call site is a copy of the library entry, not the entry itself.
	if tree.Root.Child(block.SlotFunction).ID == tree.Functions["add"].ID {
		t.Error("custom block shares its function with the library")
	}
	if d := tree.Root.Child(block.SlotFunction).Depth; d != 1 {
		t.Errorf("function depth = %d, want 1", d)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no root", `{"inputs": 1}`, "no root"},
		{"negative inputs", `{"inputs": -1, "root": {"type": "zero"}}`, "negative"},
		{"unknown type", `{"root": {"type": "lambda"}}`, "unknown block type"},
		{"unknown slot", `{"root": {"type": "successor", "slots": {"f": {"type": "zero"}}}}`, "no slot"},
		{"unknown param", `{"root": {"type": "zero", "params": {"k": 1}}}`, "no parameter"},
		{"unknown ref", `{"root": {"type": "custom", "ref": "mul"}}`, "unknown function"},
		{"ref on non-custom", `{"functions": {"z": {"type": "zero"}}, "root": {"type": "successor", "ref": "z"}}`, "ref"},
		{"duplicate id", `{"root": {"type": "composition", "id": "a", "slots": {"f": {"type": "zero", "id": "a"}}}}`, "duplicate"},
		{"bad json", `{"root": `, "decoding json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRecursiveRefRejected(t *testing.T) {
	doc := `
functions:
  loop:
    type: custom
    ref: other
  other:
    type: custom
    ref: loop
root:
  type: custom
  ref: loop
`
	_, err := Parse([]byte(doc), FormatYAML)
	if !errors.Is(err, ErrRecursiveRef) {
		t.Fatalf("err = %v, want ErrRecursiveRef", err)
	}
}

func TestAuthoredIDsAndBreakpoints(t *testing.T) {
	doc := `{
  "inputs": 1,
  "root": {
    "type": "composition",
    "id": "top",
    "slots": {
      "f": {"type": "successor", "id": "inc", "breakpoint": true},
      "g1": {"type": "projection"}
    }
  }
}`
	tree, err := Parse([]byte(doc), FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tree.Root.ID != "top" {
		t.Errorf("root id = %q", tree.Root.ID)
	}
	bps := block.Breakpoints(tree.Root)
	if len(bps) != 1 || bps[0] != "inc" {
		t.Errorf("Breakpoints = %v, want [inc]", bps)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			orig, err := Parse([]byte(testutil.AddYAML), FormatYAML)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			orig.Root.Child(block.SlotFunction).HasBreakpoint = true

			path := filepath.Join(t.TempDir(), "nested", "add"+ext)
			if err := Save(path, orig); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if testutil.FileExists(t, path+".tmp") {
				t.Error("temp file left behind")
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.Inputs != orig.Inputs {
				t.Errorf("Inputs = %d, want %d", loaded.Inputs, orig.Inputs)
			}
			if _, ok := loaded.Functions["add"]; !ok {
				t.Error("library lost on round trip")
			}
			if loaded.Root.ID != orig.Root.ID {
				t.Errorf("root id changed: %s -> %s", orig.Root.ID, loaded.Root.ID)
			}
			if !loaded.Root.Child(block.SlotFunction).HasBreakpoint {
				t.Error("breakpoint lost on round trip")
			}
			testutil.AssertEqualInts(t, testutil.InputCounts(loaded.Root), testutil.InputCounts(orig.Root))
			if got := evaluate(t, loaded.Root, 2, 2); got != 4 {
				t.Errorf("add(2, 2) = %d, want 4", got)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestFromBlockSkipsEmptySlots(t *testing.T) {
	root := testutil.Comp(testutil.Zero(), nil, testutil.Zero())
	n := FromBlock(root)
	if _, ok := n.Slots["g1"]; ok {
		t.Error("empty slot g1 should be omitted")
	}
	if n.Params["m"] != 2 {
		t.Errorf("m = %d, want 2", n.Params["m"])
	}
}

func TestNegativeArityLoadsAndFailsToEvaluate(t *testing.T) {
	doc := `{"inputs":1,"root":{"type":"composition","params":{"m":-1},"slots":{"f":{"type":"zero"}}}}`
	tree, err := Parse([]byte(doc), FormatJSON)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	block.Validate(tree.Root)
	if !block.HasErrors(tree.Root) {
		t.Error("negative arity should be reported by validation")
	}

	_, err = eval.New().Evaluate(context.Background(), tree.Root, []int{3})
	if !errors.Is(err, block.ErrParameter) {
		t.Errorf("Evaluate error = %v, want ErrParameter", err)
	}
}
