package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/npratt/prfkit/internal/block"
	"github.com/npratt/prfkit/internal/eval"
	"github.com/npratt/prfkit/internal/events"
	"github.com/npratt/prfkit/internal/remote"
	"github.com/npratt/prfkit/internal/treefile"
)

// errInvalidTree is returned by validate when any block carries errors, so
// the process exits non-zero after the report is printed.
var errInvalidTree = errors.New("tree has validation errors")

// evalOutput is the --json shape of eval and step results.
type evalOutput struct {
	Result int    `json:"result"`
	Steps  int    `json:"steps,omitempty"`
	State  string `json:"state,omitempty"`
	Error  string `json:"error,omitempty"`
}

// loadRun loads a tree file and checks inputs against its input count.
func loadRun(path string, inputs []int) (*treefile.Tree, error) {
	tree, err := treefile.Load(path)
	if err != nil {
		return nil, err
	}
	if err := checkInputs(inputs, tree.Inputs); err != nil {
		return nil, err
	}
	return tree, nil
}

// checkInputs rejects negative values and a count that does not match the
// root's input count.
func checkInputs(inputs []int, want int) error {
	if len(inputs) != want {
		return fmt.Errorf("tree takes %d input(s), got %d", want, len(inputs))
	}
	for i, v := range inputs {
		if v < 0 {
			return fmt.Errorf("input %d is negative (%d); inputs are natural numbers", i+1, v)
		}
	}
	return nil
}

// runEval evaluates tree directly and prints the result.
func runEval(ctx context.Context, w io.Writer, engine *eval.Engine, tree *treefile.Tree, inputs []int, asJSON bool) error {
	v, err := engine.Evaluate(ctx, tree.Root, inputs)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if asJSON {
		return writeJSON(w, evalOutput{Result: v})
	}
	_, err = fmt.Fprintf(w, "%s%s = %d\n", tree.Root.Label(), events.FormatInputs(inputs), v)
	return err
}

// runValidate validates the tree, prints it with its errors and returns
// errInvalidTree when any block failed.
func runValidate(w io.Writer, tree *treefile.Tree, asJSON bool) error {
	block.Validate(tree.Root)

	if asJSON {
		type blockErrors struct {
			ID     string   `json:"id"`
			Label  string   `json:"label"`
			Errors []string `json:"errors"`
		}
		var out []blockErrors
		block.Walk(tree.Root, func(b *block.Block) bool {
			if len(b.Errors) > 0 {
				out = append(out, blockErrors{ID: b.ID, Label: b.Label(), Errors: b.Errors})
			}
			return true
		})
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		printTree(w, tree.Root)
	}

	if block.HasErrors(tree.Root) {
		return errInvalidTree
	}
	if !asJSON {
		_, _ = fmt.Fprintln(w, "ok")
	}
	return nil
}

// printTree writes an outline of the tree. Each block shows the names of the
// inputs it receives and any validation errors; empty slots are listed so
// missing pieces are visible.
func printTree(w io.Writer, root *block.Block) {
	printBlock(w, root, "", block.DescriptorPlain, 0)
}

func printBlock(w io.Writer, b *block.Block, slot string, descriptor, depth int) {
	indent := strings.Repeat("  ", depth)
	prefix := indent
	if slot != "" {
		prefix += slot + ": "
	}
	names := block.InputNames(descriptor, b.InputCount)
	line := fmt.Sprintf("%s%s(%s)", prefix, b.Label(), strings.Join(names, ", "))
	if b.HasBreakpoint {
		line += " [break]"
	}
	if len(b.Errors) > 0 {
		line += "  ! " + strings.Join(b.Errors, " ")
	}
	_, _ = fmt.Fprintln(w, line)

	for _, s := range b.Slots {
		if s.Block == nil {
			_, _ = fmt.Fprintf(w, "%s  %s: (empty)\n", indent, s.Name)
			continue
		}
		printBlock(w, s.Block, s.Name, s.InputDescriptor, depth+1)
	}
}

// printStatus writes a human-readable session status.
func printStatus(w io.Writer, status *remote.StatusResponse) {
	_, _ = fmt.Fprintf(w, "State: %s\n", status.State)
	if status.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run: %s\n", status.RunID)
	}
	_, _ = fmt.Fprintf(w, "Steps: %d\n", status.Steps)
	if status.Result != nil {
		_, _ = fmt.Fprintf(w, "Result: %d\n", *status.Result)
	}
	if status.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", status.Error)
	}
	bp := "on"
	if status.IgnoreBreakpoints {
		bp = "ignored"
	}
	_, _ = fmt.Fprintf(w, "Speed: %s\n", status.Speed)
	_, _ = fmt.Fprintf(w, "Breakpoints: %s", bp)
	if len(status.Breakpoints) > 0 {
		_, _ = fmt.Fprintf(w, " (%s)", strings.Join(status.Breakpoints, ", "))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Uptime: %s\n", status.Uptime)
}

// printTrace replays a recorded trace file.
func printTrace(w io.Writer, path string) error {
	evs, err := events.ReadTraceFile(path)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if line := events.FormatWithTimestamp(ev); line != "" {
			_, _ = fmt.Fprintln(w, line)
		}
	}
	return nil
}

// convertTree rewrites a tree file in the format implied by dst's extension.
func convertTree(src, dst string) error {
	tree, err := treefile.Load(src)
	if err != nil {
		return err
	}
	return treefile.Save(dst, tree)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
