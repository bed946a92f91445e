package doctree

import (
	"github.com/google/uuid"

	"streamdoc-engine/pkg/markup"
)

type stepKind int

const (
	stepInsert stepKind = iota
	stepRemove
	stepReplaceInline
	stepSetBlockKind
)

type step struct {
	kind      stepKind
	index     int
	node      *Node
	id        uuid.UUID
	inline    []markup.Node
	blockKind markup.BlockKind
}

// Transaction is a batch of structural edits applied as one atomic unit,
// producing a resulting selection. Every mutation states whether it belongs
// in the undo history; content replacement driven by streaming, for example,
// must not pollute the user's undo stack.
type Transaction struct {
	steps         []step
	selection     *Selection
	IncludeInUndo bool
}

func NewTransaction(includeInUndo bool) *Transaction {
	return &Transaction{IncludeInUndo: includeInUndo}
}

func (tx *Transaction) InsertNode(index int, node *Node) *Transaction {
	tx.steps = append(tx.steps, step{kind: stepInsert, index: index, node: node})
	return tx
}

func (tx *Transaction) RemoveNode(id uuid.UUID) *Transaction {
	tx.steps = append(tx.steps, step{kind: stepRemove, id: id})
	return tx
}

func (tx *Transaction) ReplaceInline(id uuid.UUID, inline []markup.Node) *Transaction {
	tx.steps = append(tx.steps, step{kind: stepReplaceInline, id: id, inline: inline})
	return tx
}

func (tx *Transaction) SetBlockKind(id uuid.UUID, kind markup.BlockKind) *Transaction {
	tx.steps = append(tx.steps, step{kind: stepSetBlockKind, id: id, blockKind: kind})
	return tx
}

func (tx *Transaction) WithSelection(sel Selection) *Transaction {
	tx.selection = &sel
	return tx
}

// Apply executes every step or none: a failing step rolls back the steps
// already applied before returning the error. On success the resulting
// selection is installed and returned.
func (t *Tree) Apply(tx *Transaction) (Selection, error) {
	var inverses []step

	rollback := func() {
		for i := len(inverses) - 1; i >= 0; i-- {
			t.applyStep(inverses[i]) //nolint:errcheck // inverse of a step that just succeeded
		}
	}

	for _, s := range tx.steps {
		inv, err := t.applyStep(s)
		if err != nil {
			rollback()
			return t.selection, err
		}
		inverses = append(inverses, inv)
	}

	if tx.selection != nil {
		t.selection = *tx.selection
	}

	if tx.IncludeInUndo && len(inverses) > 0 {
		// Reverse so undo replays the inverses back-to-front.
		for i, j := 0, len(inverses)-1; i < j; i, j = i+1, j-1 {
			inverses[i], inverses[j] = inverses[j], inverses[i]
		}
		t.undo = append(t.undo, &Transaction{steps: inverses})
	}

	return t.selection, nil
}

// Undo reverts the most recent undo-grouped transaction. Returns false when
// there is nothing to undo.
func (t *Tree) Undo() bool {
	if len(t.undo) == 0 {
		return false
	}
	tx := t.undo[len(t.undo)-1]
	t.undo = t.undo[:len(t.undo)-1]
	for _, s := range tx.steps {
		t.applyStep(s) //nolint:errcheck // inverses always reference live state
	}
	return true
}

func (t *Tree) applyStep(s step) (step, error) {
	switch s.kind {
	case stepInsert:
		if err := t.insertAt(s.index, s.node); err != nil {
			return step{}, err
		}
		return step{kind: stepRemove, id: s.node.ID}, nil

	case stepRemove:
		n, idx, err := t.removeByID(s.id)
		if err != nil {
			return step{}, err
		}
		return step{kind: stepInsert, index: idx, node: n}, nil

	case stepReplaceInline:
		n := t.Node(s.id)
		if n == nil {
			return step{}, ErrNodeNotFound
		}
		old := n.Inline
		n.Inline = s.inline
		return step{kind: stepReplaceInline, id: s.id, inline: old}, nil

	case stepSetBlockKind:
		n := t.Node(s.id)
		if n == nil {
			return step{}, ErrNodeNotFound
		}
		old := n.BlockKind
		n.BlockKind = s.blockKind
		return step{kind: stepSetBlockKind, id: s.id, blockKind: old}, nil
	}
	return step{}, ErrNodeNotFound
}
