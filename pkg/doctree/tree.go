package doctree

import (
	"errors"

	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/markup"
)

var (
	ErrNodeNotFound = errors.New("doctree: node not found")
	ErrBadIndex     = errors.New("doctree: index out of range")
)

// Node is the live editable mirror of one cell: identity, block kind as an
// attribute, and inline content only. Nodes never nest other cell nodes.
type Node struct {
	ID        uuid.UUID
	CellType  entity.CellType
	BlockKind markup.BlockKind
	Inline    []markup.Node
}

// Clone returns a copy whose inline slice is independent.
func (n *Node) Clone() *Node {
	out := *n
	out.Inline = append([]markup.Node(nil), n.Inline...)
	return &out
}

// Selection is a cursor position inside the tree. Offset counts valid cursor
// positions within the node's inline content.
type Selection struct {
	NodeID    uuid.UUID
	Offset    int
	Collapsed bool
}

// Tree holds one node per live cell, in authoritative order.
type Tree struct {
	nodes []*Node
	index map[uuid.UUID]int

	selection Selection
	undo      []*Transaction
}

func New() *Tree {
	return &Tree{index: make(map[uuid.UUID]int)}
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id uuid.UUID) *Node {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.nodes[i]
}

// NodeAt returns the node at a position, or nil when out of range.
func (t *Tree) NodeAt(i int) *Node {
	if i < 0 || i >= len(t.nodes) {
		return nil
	}
	return t.nodes[i]
}

// IndexOf returns the position of a node, or -1.
func (t *Tree) IndexOf(id uuid.UUID) int {
	if i, ok := t.index[id]; ok {
		return i
	}
	return -1
}

// OrderedIDs returns the node ids in tree order.
func (t *Tree) OrderedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(t.nodes))
	for i, n := range t.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Selection returns the current cursor state.
func (t *Tree) Selection() Selection {
	return t.selection
}

// SetSelection moves the cursor without mutating content.
func (t *Tree) SetSelection(sel Selection) {
	t.selection = sel
}

// FirstOffset is the first valid cursor offset within a node. Always zero;
// kept as a method so callers read symmetrically with LastOffset.
func (t *Tree) FirstOffset(id uuid.UUID) int {
	return 0
}

// LastOffset is the last valid cursor offset within a node, accounting for
// nested inline structure: one position per rune, per line break, per atomic
// node.
func (t *Tree) LastOffset(id uuid.UUID) int {
	n := t.Node(id)
	if n == nil {
		return 0
	}
	return markup.Length(n.Inline)
}

// IsEmptyNode reports whether a node has no semantic content: no
// non-whitespace text and no atomic nodes. Line breaks alone do not count.
func (t *Tree) IsEmptyNode(id uuid.UUID) bool {
	n := t.Node(id)
	if n == nil {
		return true
	}
	return markup.IsEmpty(n.Inline)
}

// Rebuild discards every node and installs the given ones. Used by the
// reconciler's full-rebuild path; bypasses the undo history because the
// rebuild is not a user edit.
func (t *Tree) Rebuild(nodes []*Node) {
	t.nodes = make([]*Node, len(nodes))
	t.index = make(map[uuid.UUID]int, len(nodes))
	for i, n := range nodes {
		t.nodes[i] = n
		t.index[n.ID] = i
	}
	t.undo = nil
	if t.Node(t.selection.NodeID) == nil && len(t.nodes) > 0 {
		t.selection = Selection{NodeID: t.nodes[0].ID, Offset: 0, Collapsed: true}
	}
}

func (t *Tree) reindexFrom(start int) {
	for i := start; i < len(t.nodes); i++ {
		t.index[t.nodes[i].ID] = i
	}
}

func (t *Tree) insertAt(i int, n *Node) error {
	if i < 0 || i > len(t.nodes) {
		return ErrBadIndex
	}
	t.nodes = append(t.nodes, nil)
	copy(t.nodes[i+1:], t.nodes[i:])
	t.nodes[i] = n
	t.reindexFrom(i)
	return nil
}

func (t *Tree) removeByID(id uuid.UUID) (*Node, int, error) {
	i, ok := t.index[id]
	if !ok {
		return nil, 0, ErrNodeNotFound
	}
	n := t.nodes[i]
	t.nodes = append(t.nodes[:i], t.nodes[i+1:]...)
	delete(t.index, id)
	t.reindexFrom(i)
	return n, i, nil
}
