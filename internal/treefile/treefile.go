// Package treefile reads and writes block trees as JSON or YAML documents.
//
// A document names the root input count, an optional library of named
// functions, and the root tree:
//
//	inputs: 2
//	functions:
//	  add: {type: primitive_recursion, slots: {...}}
//	root:
//	  type: custom
//	  ref: add
//
// A Custom block with a ref is expanded to a fresh copy of the library entry,
// so editing one call site never affects another.
package treefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/npratt/prfkit/internal/block"
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrRecursiveRef is returned when a library function refers to itself,
// directly or through other functions.
var ErrRecursiveRef = errors.New("recursive function reference")

// FormatForPath picks a format from a file extension. Unknown extensions
// are treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the on-disk shape of a tree file.
type Document struct {
	Inputs    int              `json:"inputs" yaml:"inputs"`
	Functions map[string]*Node `json:"functions,omitempty" yaml:"functions,omitempty"`
	Root      *Node            `json:"root" yaml:"root"`
}

// Node is the on-disk shape of one block.
type Node struct {
	ID         string           `json:"id,omitempty" yaml:"id,omitempty"`
	Type       string           `json:"type" yaml:"type"`
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	Ref        string           `json:"ref,omitempty" yaml:"ref,omitempty"`
	Params     map[string]int   `json:"params,omitempty" yaml:"params,omitempty"`
	Slots      map[string]*Node `json:"slots,omitempty" yaml:"slots,omitempty"`
	Breakpoint bool             `json:"breakpoint,omitempty" yaml:"breakpoint,omitempty"`
	Collapsed  bool             `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
}

// Tree is a loaded document: a root with input counts already propagated,
// plus the library it was built against.
type Tree struct {
	Root      *block.Block
	Inputs    int
	Functions map[string]*block.Block
}

// Load reads a tree file, choosing the format from its extension.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree file: %w", err)
	}
	t, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a document and builds its tree.
func Parse(data []byte, format Format) (*Tree, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	}
	return doc.Build()
}

// Build turns the document into block trees. Input counts are propagated
// from Inputs; validation is left to the caller.
func (d *Document) Build() (*Tree, error) {
	if d.Root == nil {
		return nil, errors.New("document has no root block")
	}
	if d.Inputs < 0 {
		return nil, fmt.Errorf("inputs must not be negative, got %d", d.Inputs)
	}

	b := &builder{functions: d.Functions, ids: make(map[string]bool)}

	names := make([]string, 0, len(d.Functions))
	for name := range d.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	lib := make(map[string]*block.Block, len(names))
	for _, name := range names {
		fn, err := b.resolve(name, nil)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", name, err)
		}
		block.SetDepths(fn)
		lib[name] = fn
	}

	root, err := b.build(d.Root, nil, true)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	block.SetDepths(root)
	block.Propagate(root, d.Inputs)

	return &Tree{Root: root, Inputs: d.Inputs, Functions: lib}, nil
}

type builder struct {
	functions map[string]*Node
	ids       map[string]bool
}

// resolve builds a fresh copy of the named library function. stack holds the
// functions currently being expanded.
func (b *builder) resolve(name string, stack []string) (*block.Block, error) {
	for _, s := range stack {
		if s == name {
			return nil, fmt.Errorf("%w: %s", ErrRecursiveRef, strings.Join(append(stack, name), " -> "))
		}
	}
	n, ok := b.functions[name]
	if !ok || n == nil {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return b.build(n, append(stack, name), false)
}

// build creates the block for n. Authored ids are honoured only outside the
// function library, where every expansion must get fresh ids.
func (b *builder) build(n *Node, stack []string, keepIDs bool) (*block.Block, error) {
	blk, err := block.New(block.Type(n.Type))
	if err != nil {
		return nil, err
	}
	blk.Name = n.Name
	blk.HasBreakpoint = n.Breakpoint
	blk.Collapsed = n.Collapsed

	// Parameters first: they decide the slot layout.
	for _, name := range sortedKeys(n.Params) {
		if err := block.SetParam(blk, name, n.Params[name]); err != nil {
			return nil, err
		}
	}

	if n.Ref != "" {
		if blk.Type != block.TypeCustom {
			return nil, fmt.Errorf("ref %q on a %s block", n.Ref, blk.Type)
		}
		if _, ok := n.Slots[block.SlotFunction]; ok {
			return nil, fmt.Errorf("custom block %q has both ref and a function slot", n.Ref)
		}
		fn, err := b.resolve(n.Ref, stack)
		if err != nil {
			return nil, err
		}
		if blk.Name == "" {
			blk.Name = n.Ref
		}
		if _, err := block.Attach(blk, block.SlotFunction, fn); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(n.Slots) {
		child := n.Slots[name]
		if child == nil {
			continue
		}
		cb, err := b.build(child, stack, keepIDs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, err := block.Attach(blk, name, cb); err != nil {
			return nil, err
		}
	}

	if keepIDs && n.ID != "" {
		if b.ids[n.ID] {
			return nil, fmt.Errorf("duplicate block id %q", n.ID)
		}
		b.ids[n.ID] = true
		blk.ID = n.ID
	}
	return blk, nil
}

// Save writes t to path in the format its extension selects. The file is
// replaced atomically.
func Save(path string, t *Tree) error {
	data, err := Marshal(t, FormatForPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing tree file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing tree file: %w", err)
	}
	return nil
}

// Marshal encodes t. Custom blocks are written expanded; the library is
// written alongside so it can be referenced again.
func Marshal(t *Tree, format Format) ([]byte, error) {
	doc := &Document{Inputs: t.Inputs, Root: FromBlock(t.Root)}
	if len(t.Functions) > 0 {
		doc.Functions = make(map[string]*Node, len(t.Functions))
		for name, fn := range t.Functions {
			n := FromBlock(fn)
			stripIDs(n)
			doc.Functions[name] = n
		}
	}

	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// FromBlock converts a block tree to its document form.
func FromBlock(b *block.Block) *Node {
	if b == nil {
		return nil
	}
	n := &Node{
		ID:         b.ID,
		Type:       string(b.Type),
		Name:       b.Name,
		Breakpoint: b.HasBreakpoint,
		Collapsed:  b.Collapsed,
	}
	if len(b.Params) > 0 {
		n.Params = make(map[string]int, len(b.Params))
		for _, p := range b.Params {
			n.Params[p.Name] = p.Value
		}
	}
	for _, s := range b.Slots {
		if s.Block == nil {
			continue
		}
		if n.Slots == nil {
			n.Slots = make(map[string]*Node)
		}
		n.Slots[s.Name] = FromBlock(s.Block)
	}
	return n
}

func stripIDs(n *Node) {
	if n == nil {
		return
	}
	n.ID = ""
	for _, c := range n.Slots {
		stripIDs(c)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
