package reconcile

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/pkg/cellstore"
	"streamdoc-engine/pkg/doctree"
	"streamdoc-engine/pkg/markup"
)

// Reconciler aligns the document tree to the cell store's authoritative
// order. It is the only permitted path for merging the two representations,
// and every pass runs to completion before the caller handles another event.
type Reconciler struct {
	fingerprint string

	// Parsing stored markup back into inline nodes is the expensive part of
	// hydration; identical content (common across refresh cycles and
	// rebuilds) is cached by content hash.
	hydrate *cache.Cache
}

func New() *Reconciler {
	return &Reconciler{
		hydrate: cache.New(10*time.Minute, 5*time.Minute),
	}
}

// Result reports what a reconciliation pass did.
type Result struct {
	Skipped bool
	Rebuilt bool
	Added   int
	Removed int
}

// Fingerprint is the cheap ordered-id summary used to skip redundant passes.
func Fingerprint(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, "|")
}

// LastFingerprint returns the authoritative state of the previous pass.
func (r *Reconciler) LastFingerprint() string {
	return r.fingerprint
}

// Reconcile brings the tree in line with the store.
//
// Pure insertions are patched surgically, touching no existing node. Any
// removal or reorder triggers a full rebuild: positional patches are unsafe
// once node sizes can have shifted under concurrent edits, so continuity of
// cursor and undo state is traded for guaranteed correctness.
func (r *Reconciler) Reconcile(store *cellstore.Store, tree *doctree.Tree) Result {
	authIds := store.OrderedIDs()
	fp := Fingerprint(authIds)
	if fp == r.fingerprint {
		return Result{Skipped: true}
	}

	treeIds := tree.OrderedIDs()

	authIndex := make(map[uuid.UUID]int, len(authIds))
	for i, id := range authIds {
		authIndex[id] = i
	}
	treeIndex := make(map[uuid.UUID]int, len(treeIds))
	for i, id := range treeIds {
		treeIndex[id] = i
	}

	var toAdd []uuid.UUID
	for _, id := range authIds {
		if _, ok := treeIndex[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}

	toRemove := 0
	for _, id := range treeIds {
		if _, ok := authIndex[id]; !ok {
			toRemove++
		}
	}

	reordered := false
	for id, ti := range treeIndex {
		ai, shared := authIndex[id]
		if shared && ai != ti {
			reordered = true
			break
		}
	}

	res := Result{Added: len(toAdd), Removed: toRemove}

	if toRemove == 0 && !reordered {
		for _, id := range toAdd {
			cell, err := store.Get(id)
			if err != nil {
				continue
			}
			node := r.hydrateNode(cell)
			tx := doctree.NewTransaction(false).InsertNode(authIndex[id], node)
			tree.Apply(tx) //nolint:errcheck // index comes from the authoritative list
		}
	} else {
		nodes := make([]*doctree.Node, 0, len(authIds))
		for _, cell := range store.CellsInOrder() {
			nodes = append(nodes, r.hydrateNode(cell))
		}
		tree.Rebuild(nodes)
		res.Rebuilt = true
	}

	r.fingerprint = fp
	return res
}

// AdoptTreeNodes is the self-healing path for the opposite direction: tree
// nodes with no store entry (pasted cells, foreign fragments) get a minimal
// cell synthesized from the node itself, at the node's tree position. Returns
// how many cells were created.
func (r *Reconciler) AdoptTreeNodes(store *cellstore.Store, tree *doctree.Tree) int {
	known := make(map[uuid.UUID]bool)
	for _, id := range store.OrderedIDs() {
		known[id] = true
	}

	adopted := 0
	for i := 0; i < tree.Len(); i++ {
		node := tree.NodeAt(i)
		if known[node.ID] {
			continue
		}

		cell := &entity.Cell{
			Id:       node.ID,
			StreamId: store.StreamId(),
			Content:  markup.SerializeCell(node.BlockKind, node.Inline),
			Type:     node.CellType,
		}
		if cell.Type == "" {
			cell.Type = entity.CellTypeText
		}

		var after *uuid.UUID
		if i > 0 {
			prev := tree.NodeAt(i - 1).ID
			after = &prev
		}
		if err := store.Add(cell, after); err == nil {
			known[node.ID] = true
			adopted++
		}
	}
	return adopted
}

type hydrated struct {
	kind   markup.BlockKind
	inline []markup.Node
}

func (r *Reconciler) hydrateNode(cell *entity.Cell) *doctree.Node {
	key := contentKey(cell.Content)
	var h hydrated
	if v, ok := r.hydrate.Get(key); ok {
		h = v.(hydrated)
	} else {
		kind, inline := markup.HydrateCell(cell.Content)
		h = hydrated{kind: kind, inline: inline}
		r.hydrate.Set(key, h, cache.DefaultExpiration)
	}

	return &doctree.Node{
		ID:        cell.Id,
		CellType:  cell.Type,
		BlockKind: h.kind,
		Inline:    append([]markup.Node(nil), h.inline...),
	}
}

func contentKey(content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return strconv.FormatUint(h.Sum64(), 16)
}
