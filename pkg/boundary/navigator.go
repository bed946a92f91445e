package boundary

import (
	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/cellstore"
	"streamdoc-engine/pkg/doctree"
	"streamdoc-engine/pkg/markup"
	"streamdoc-engine/pkg/persist"
)

// Key identifies the raw key of an intercepted event.
type Key string

const (
	KeyEnter     Key = "Enter"
	KeyBackspace Key = "Backspace"
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
)

// KeyEvent is a raw key event arriving at a cell edge.
type KeyEvent struct {
	Key   Key
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

func (e KeyEvent) hasModifier() bool {
	return e.Shift || e.Ctrl || e.Alt || e.Meta
}

// Persister is the slice of the persistence scheduler the navigator needs.
type Persister interface {
	Observe(streamId, cellId uuid.UUID, content string, order int)
	Forget(cellId uuid.UUID)
	Flush(reason string)
}

// Deleter emits an immediate delete for a structurally removed cell.
type Deleter interface {
	DeleteCell(streamId, cellId uuid.UUID)
}

// Navigator intercepts key events at cell edges and turns them into
// structural cell operations. Events away from an edge, range selections, and
// anything it doesn't recognize fall through to default in-cell behavior.
type Navigator struct {
	store     *cellstore.Store
	tree      *doctree.Tree
	persister Persister
	deleter   Deleter
}

func NewNavigator(store *cellstore.Store, tree *doctree.Tree, persister Persister, deleter Deleter) *Navigator {
	return &Navigator{store: store, tree: tree, persister: persister, deleter: deleter}
}

// Handle processes one key event against the current selection. It returns
// true when the event was consumed as a structural operation.
func (n *Navigator) Handle(ev KeyEvent) bool {
	sel := n.tree.Selection()
	if !sel.Collapsed {
		return false
	}
	node := n.tree.Node(sel.NodeID)
	if node == nil {
		return false
	}

	atStart := sel.Offset <= n.tree.FirstOffset(node.ID)
	atEnd := sel.Offset >= n.tree.LastOffset(node.ID)

	switch ev.Key {
	case KeyEnter:
		if ev.hasModifier() {
			return false
		}
		if node.BlockKind == markup.KindBulletItem || node.BlockKind == markup.KindNumberItem {
			// List continuation is default in-cell behavior.
			return false
		}
		if !atEnd {
			return false
		}
		return n.createSiblingAfter(node)

	case KeyBackspace:
		if !atStart || !n.tree.IsEmptyNode(node.ID) {
			return false
		}
		prevIdx := n.tree.IndexOf(node.ID) - 1
		if prevIdx < 0 {
			return false
		}
		return n.deleteAndFocusPrevious(node, prevIdx)

	case KeyArrowUp:
		if !atStart {
			return false
		}
		prev := n.tree.NodeAt(n.tree.IndexOf(node.ID) - 1)
		if prev == nil {
			return false
		}
		n.moveTo(prev.ID, n.tree.LastOffset(prev.ID))
		return true

	case KeyArrowDown:
		if !atEnd {
			return false
		}
		next := n.tree.NodeAt(n.tree.IndexOf(node.ID) + 1)
		if next == nil {
			return false
		}
		n.moveTo(next.ID, 0)
		return true
	}

	return false
}

func (n *Navigator) createSiblingAfter(node *doctree.Node) bool {
	cell := &entity.Cell{
		Id:       uuid.New(),
		StreamId: n.store.StreamId(),
		Content:  markup.SerializeCell(markup.KindParagraph, nil),
		Type:     entity.CellTypeText,
	}
	afterId := node.ID
	if err := n.store.Add(cell, &afterId); err != nil {
		return false
	}

	fresh := &doctree.Node{
		ID:        cell.Id,
		CellType:  cell.Type,
		BlockKind: markup.KindParagraph,
	}
	idx := n.tree.IndexOf(node.ID) + 1
	tx := doctree.NewTransaction(true).
		InsertNode(idx, fresh).
		WithSelection(doctree.Selection{NodeID: cell.Id, Offset: 0, Collapsed: true})
	if _, err := n.tree.Apply(tx); err != nil {
		n.store.Delete(cell.Id) //nolint:errcheck // undo the store insert
		return false
	}

	// Structural transitions persist immediately.
	n.persister.Observe(cell.StreamId, cell.Id, cell.Content, cell.Order)
	n.persister.Flush(persist.ReasonStructural)
	return true
}

func (n *Navigator) deleteAndFocusPrevious(node *doctree.Node, prevIdx int) bool {
	prev := n.tree.NodeAt(prevIdx)
	if prev == nil {
		return false
	}

	// The streaming guard applies here too: an empty cell mid-stream stays.
	if err := n.store.Delete(node.ID); err != nil {
		return false
	}

	streamId := n.store.StreamId()
	tx := doctree.NewTransaction(true).
		RemoveNode(node.ID).
		WithSelection(doctree.Selection{NodeID: prev.ID, Offset: n.tree.LastOffset(prev.ID), Collapsed: true})
	n.tree.Apply(tx) //nolint:errcheck // node existence was just checked

	n.persister.Forget(node.ID)
	if n.deleter != nil {
		n.deleter.DeleteCell(streamId, node.ID)
	}
	n.persister.Flush(persist.ReasonStructural)
	return true
}

// moveTo is cell-boundary navigation away from the current cell, which is a
// flush trigger for pending edits.
func (n *Navigator) moveTo(id uuid.UUID, offset int) {
	n.tree.SetSelection(doctree.Selection{NodeID: id, Offset: offset, Collapsed: true})
	n.persister.Flush(persist.ReasonBoundaryNav)
}
