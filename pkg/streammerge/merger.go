package streammerge

import (
	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/pkg/logger"
	"streamdoc-engine/pkg/cellstore"
	"streamdoc-engine/pkg/doctree"
	"streamdoc-engine/pkg/markup"
	"streamdoc-engine/pkg/persist"
)

// Persister is the slice of the persistence scheduler the merger needs.
type Persister interface {
	Observe(streamId, cellId uuid.UUID, content string, order int)
	Flush(reason string)
}

// Canceler asks the generation source to stop producing for a cell. Purely
// best-effort: local chunk application stops regardless of whether the
// generator honors the request.
type Canceler interface {
	CancelGeneration(cellId uuid.UUID)
}

// Merger applies incoming generation chunks to a cell's node content,
// yielding to concurrent user edits, and splits the result into multiple
// cells on completion.
type Merger struct {
	store     *cellstore.Store
	tree      *doctree.Tree
	persister Persister
	canceler  Canceler
	log       logger.ILogger
}

func NewMerger(store *cellstore.Store, tree *doctree.Tree, persister Persister, canceler Canceler, log logger.ILogger) *Merger {
	return &Merger{
		store:     store,
		tree:      tree,
		persister: persister,
		canceler:  canceler,
		log:       log,
	}
}

// Start opens the streaming session and snapshots the cell's current
// serialized content, so an edit made before the first chunk already counts
// as divergence.
func (m *Merger) Start(cellId uuid.UUID, preservedPrefix string) error {
	if err := m.store.StartStreaming(cellId, preservedPrefix); err != nil {
		return err
	}
	if node := m.tree.Node(cellId); node != nil {
		m.store.SetLastApplied(cellId, markup.SerializeMarkdown(node.Inline)) //nolint:errcheck // session was just opened
	}
	return nil
}

// OnChunk appends generator output and replaces the node content with a full
// re-parse of the entire accumulated text. Incremental appends against a
// non-incremental markdown parser drift out of sync with block boundaries;
// the wholesale replace is the only safe strategy.
//
// Chunks for a cell that has left the Streaming state are dropped.
func (m *Merger) OnChunk(cellId uuid.UUID, chunk string) {
	sess := m.store.Session(cellId)
	if sess == nil || sess.State != cellstore.StateStreaming {
		m.debug("chunk dropped, no live session", cellId)
		return
	}

	node := m.tree.Node(cellId)
	if node == nil {
		// Node vanished from the tree; nothing to merge into. The session is
		// abandoned so the rest of the stream drains quietly.
		m.store.Abandon(cellId) //nolint:errcheck
		return
	}

	// The user's edit is authoritative and is never overwritten.
	if markup.SerializeMarkdown(node.Inline) != sess.LastApplied {
		m.abandon(cellId, node)
		return
	}

	if err := m.store.AppendChunk(cellId, chunk); err != nil {
		return
	}
	accumulated, err := m.store.Accumulated(cellId)
	if err != nil {
		return
	}

	inline := markup.ParseBlockToInline(sess.PreservedPrefix + accumulated)
	tx := doctree.NewTransaction(false).ReplaceInline(cellId, inline)
	if _, err := m.tree.Apply(tx); err != nil {
		return
	}
	m.store.SetLastApplied(cellId, markup.SerializeMarkdown(inline)) //nolint:errcheck
}

// OnComplete finishes the session. Without divergence, the final text is
// split into block specs, one cell each: the first keeps the original id so
// inbound references survive, the rest receive fresh ids. With divergence the
// final text is discarded and the user's content is persisted as-is.
func (m *Merger) OnComplete(cellId uuid.UUID, finalText string) {
	sess := m.store.Session(cellId)
	if sess == nil {
		return
	}

	node := m.tree.Node(cellId)

	diverged := sess.State == cellstore.StateAbandoned
	if !diverged && node != nil && markup.SerializeMarkdown(node.Inline) != sess.LastApplied {
		diverged = true
	}

	if diverged || node == nil {
		m.store.Complete(cellId) //nolint:errcheck
		if node != nil {
			m.persistNode(node)
		}
		m.persister.Flush(persist.ReasonStructural)
		return
	}

	cell, err := m.store.Get(cellId)
	if err != nil {
		m.store.Complete(cellId) //nolint:errcheck
		return
	}

	specs := markup.ParseBlocks(sess.PreservedPrefix + finalText)

	first := specs[0]
	tx := doctree.NewTransaction(false).
		ReplaceInline(cellId, first.Inline).
		SetBlockKind(cellId, first.Kind)
	if _, err := m.tree.Apply(tx); err != nil {
		m.store.Complete(cellId) //nolint:errcheck
		return
	}

	content := markup.SerializeCell(first.Kind, first.Inline)
	m.store.Update(cellId, cellstore.Patch{Content: &content}) //nolint:errcheck

	// Subsequent specs become sibling cells right after the original.
	after := cellId
	insertAt := m.tree.IndexOf(cellId) + 1
	for _, spec := range specs[1:] {
		sibling := &entity.Cell{
			Id:       uuid.New(),
			StreamId: cell.StreamId,
			Content:  markup.SerializeCell(spec.Kind, spec.Inline),
			Type:     cell.Type,
			ModelId:  cell.ModelId,
		}
		if err := m.store.Add(sibling, &after); err != nil {
			break
		}
		node := &doctree.Node{
			ID:        sibling.Id,
			CellType:  sibling.Type,
			BlockKind: spec.Kind,
			Inline:    spec.Inline,
		}
		insTx := doctree.NewTransaction(false).InsertNode(insertAt, node)
		m.tree.Apply(insTx) //nolint:errcheck
		after = sibling.Id
		insertAt++
	}

	m.store.Complete(cellId) //nolint:errcheck

	// Structural transition persists immediately, not on the debounce.
	for _, c := range m.store.CellsInOrder() {
		m.persister.Observe(c.StreamId, c.Id, c.Content, c.Order)
	}
	m.persister.Flush(persist.ReasonStructural)
}

// OnError records a per-cell generation error and clears the streaming
// indicator. Partial content already merged stays untouched.
func (m *Merger) OnError(cellId uuid.UUID, message string) {
	if err := m.store.SetError(cellId, message); err != nil {
		return
	}
	if m.log != nil {
		m.log.Warn("StreamMerge", "generation failed", map[string]interface{}{
			"cell_id": cellId.String(),
			"error":   message,
		})
	}
}

func (m *Merger) abandon(cellId uuid.UUID, node *doctree.Node) {
	m.store.Abandon(cellId) //nolint:errcheck
	if m.canceler != nil {
		m.canceler.CancelGeneration(cellId)
	}
	m.persistNode(node)
	m.debug("session abandoned by user edit", cellId)
}

func (m *Merger) persistNode(node *doctree.Node) {
	cell, err := m.store.Get(node.ID)
	if err != nil {
		return
	}
	content := markup.SerializeCell(node.BlockKind, node.Inline)
	m.store.Update(node.ID, cellstore.Patch{Content: &content}) //nolint:errcheck
	m.persister.Observe(cell.StreamId, node.ID, content, cell.Order)
}

func (m *Merger) debug(msg string, cellId uuid.UUID) {
	if m.log != nil {
		m.log.Debug("StreamMerge", msg, map[string]interface{}{"cell_id": cellId.String()})
	}
}
