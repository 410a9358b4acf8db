package scaffold

import (
	"fmt"
	"strings"
)

// diffContext is the number of unchanged lines shown around each change.
const diffContext = 3

// UnifiedDiff returns a unified diff from oldContent to newContent, or ""
// when they are identical. Changes closer than twice the context share a
// hunk.
func UnifiedDiff(oldName, newName, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}
	a, b := lines(oldContent), lines(newContent)
	ops := diffLines(a, b)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n", oldName)
	fmt.Fprintf(&out, "+++ %s\n", newName)
	for _, h := range hunks(ops) {
		writeHunk(&out, ops[h[0]:h[1]], a, b)
	}
	return out.String()
}

type opKind byte

const (
	opKeep opKind = ' '
	opDel  opKind = '-'
	opAdd  opKind = '+'
)

// op is one line of the edit script. ai and bi are the line positions in the
// old and new content at the point the op applies.
type op struct {
	kind   opKind
	ai, bi int
}

func lines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// diffLines builds an edit script from a longest-common-subsequence table
// filled from the end, so the script can be read off front to back.
func diffLines(a, b []string) []op {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				lcs[i][j] = lcs[i+1][j+1] + 1
			case lcs[i+1][j] >= lcs[i][j+1]:
				lcs[i][j] = lcs[i+1][j]
			default:
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	ops := make([]op, 0, n+m)
	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && a[i] == b[j]:
			ops = append(ops, op{opKeep, i, j})
			i++
			j++
		case j == m || (i < n && lcs[i+1][j] >= lcs[i][j+1]):
			ops = append(ops, op{opDel, i, j})
			i++
		default:
			ops = append(ops, op{opAdd, i, j})
			j++
		}
	}
	return ops
}

// hunks returns [start, end) ranges of ops, each covering a run of changes
// plus surrounding context.
func hunks(ops []op) [][2]int {
	var out [][2]int
	for i := 0; i < len(ops); i++ {
		if ops[i].kind == opKeep {
			continue
		}
		start := max(i-diffContext, 0)
		end := min(i+1+diffContext, len(ops))
		if len(out) > 0 && start <= out[len(out)-1][1] {
			out[len(out)-1][1] = end
		} else {
			out = append(out, [2]int{start, end})
		}
	}
	return out
}

func writeHunk(out *strings.Builder, ops []op, a, b []string) {
	var oldCount, newCount int
	for _, o := range ops {
		if o.kind != opAdd {
			oldCount++
		}
		if o.kind != opDel {
			newCount++
		}
	}
	oldStart, newStart := ops[0].ai+1, ops[0].bi+1
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}

	fmt.Fprintf(out, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, o := range ops {
		line := ""
		if o.kind == opAdd {
			line = b[o.bi]
		} else {
			line = a[o.ai]
		}
		out.WriteByte(byte(o.kind))
		out.WriteString(line)
		out.WriteByte('\n')
	}
}
