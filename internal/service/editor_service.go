package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/pkg/logger"
	"streamdoc-engine/internal/repository/contract"
	"streamdoc-engine/internal/repository/specification"
	"streamdoc-engine/pkg/boundary"
	"streamdoc-engine/pkg/cellstore"
	"streamdoc-engine/pkg/clipboard"
	"streamdoc-engine/pkg/doctree"
	"streamdoc-engine/pkg/dragstate"
	"streamdoc-engine/pkg/markup"
	"streamdoc-engine/pkg/persist"
	"streamdoc-engine/pkg/reconcile"
	"streamdoc-engine/pkg/streammerge"
	"streamdoc-engine/pkg/utils"
)

// Broadcaster pushes updates to every client attached to a stream.
// Implemented by the websocket hub.
type Broadcaster interface {
	BroadcastToStream(streamId uuid.UUID, payload interface{})
}

// IEditorService owns the live editing sessions: one cell store, document
// tree, merger and navigator per open stream. Every message for a stream
// runs to completion under that stream's lock before the next one starts,
// so the engine behaves like a single-threaded event loop per document.
type IEditorService interface {
	GenerationEvents

	OpenStream(ctx context.Context, userId uuid.UUID, streamId uuid.UUID) error
	CloseStream(streamId uuid.UUID)
	HandleMessage(ctx context.Context, userId uuid.UUID, msg *dto.EditorMessage) (*dto.EditorReply, error)
	SetBroadcaster(b Broadcaster)
}

type editorSession struct {
	mu         sync.Mutex
	store      *cellstore.Store
	tree       *doctree.Tree
	reconciler *reconcile.Reconciler
	merger     *streammerge.Merger
	navigator  *boundary.Navigator
	drag       *dragstate.State
}

type editorService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*editorSession

	cellRepo    contract.CellRepository
	streamRepo  contract.StreamRepository
	publisher   IPublisherService
	generation  IGenerationService
	scheduler   *persist.Scheduler
	broadcaster Broadcaster
	log         logger.ILogger
	priorBudget int
}

func NewEditorService(
	cellRepo contract.CellRepository,
	streamRepo contract.StreamRepository,
	publisher IPublisherService,
	generation IGenerationService,
	log logger.ILogger,
	persistDebounce time.Duration,
	priorBudget int,
) IEditorService {
	return &editorService{
		sessions:   make(map[uuid.UUID]*editorSession),
		cellRepo:   cellRepo,
		streamRepo: streamRepo,
		publisher:  publisher,
		generation: generation,
		// One scheduler for the whole editor: pending writes keep the
		// stream id they were observed under, so a stream switch cannot
		// retag or drop them.
		scheduler:   persist.NewScheduler(persistDebounce, publisher),
		log:         log,
		priorBudget: priorBudget,
	}
}

func (e *editorService) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// OpenStream hydrates a session from the database: cells into the store in
// document order, then a reconcile pass to build the tree.
func (e *editorService) OpenStream(ctx context.Context, userId uuid.UUID, streamId uuid.UUID) error {
	e.mu.RLock()
	_, exists := e.sessions[streamId]
	e.mu.RUnlock()
	if exists {
		return nil
	}

	stream, err := e.streamRepo.FindOne(ctx,
		specification.ByID{ID: streamId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if stream == nil {
		return fmt.Errorf("stream not found")
	}

	cells, err := e.cellRepo.FindAll(ctx,
		specification.ByStreamID{StreamID: streamId},
		specification.OrderBy{Field: "cell_order"},
	)
	if err != nil {
		return err
	}

	store := cellstore.New(streamId)
	for _, cell := range cells {
		if err := store.Add(cell, nil); err != nil {
			return err
		}
		e.scheduler.SetBaseline(streamId, cell.Id, cell.Content, cell.Order)
	}

	session := &editorSession{
		store:      store,
		tree:       doctree.New(),
		reconciler: reconcile.New(),
		drag:       dragstate.New(),
	}
	session.merger = streammerge.NewMerger(store, session.tree, e.scheduler, e.generation, e.log)
	session.navigator = boundary.NewNavigator(store, session.tree, e.scheduler, e.publisher)
	session.reconciler.Reconcile(store, session.tree)

	e.mu.Lock()
	e.sessions[streamId] = session
	e.mu.Unlock()

	e.log.Info("editor", "stream session opened", map[string]interface{}{
		"stream_id": streamId.String(),
		"cells":     len(cells),
	})
	return nil
}

// CloseStream flushes whatever the debounce window still holds and drops the
// session.
func (e *editorService) CloseStream(streamId uuid.UUID) {
	e.mu.Lock()
	session, ok := e.sessions[streamId]
	if ok {
		delete(e.sessions, streamId)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	e.scheduler.Flush(persist.ReasonShutdown)
}

func (e *editorService) session(streamId uuid.UUID) *editorSession {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[streamId]
}

func (e *editorService) HandleMessage(ctx context.Context, userId uuid.UUID, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	session := e.session(msg.StreamId)
	if session == nil {
		return nil, fmt.Errorf("no open session for stream %s", msg.StreamId)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch msg.Type {
	case dto.MsgTypeThink:
		return e.handleThink(ctx, session, msg)
	case dto.MsgTypeThinkCancel:
		return e.handleThinkCancel(session, msg)
	case dto.MsgTypeCellInput:
		return e.handleCellInput(session, msg)
	case dto.MsgTypeCellPaste:
		return e.handleCellPaste(session, msg)
	case dto.MsgTypeKeyDown:
		return e.handleKeyDown(session, msg)
	case dto.MsgTypeFocusLost:
		e.scheduler.Flush(persist.ReasonFocusLost)
		return ack(msg), nil
	case dto.MsgTypeStreamSwitch:
		e.scheduler.Flush(persist.ReasonStreamSwitch)
		return ack(msg), nil
	case dto.MsgTypeDragStart:
		session.drag.Set(msg.CellId)
		return ack(msg), nil
	case dto.MsgTypeDragEnd:
		session.drag.Clear()
		return ack(msg), nil
	case dto.MsgTypeQuickPanelCellsAdded:
		return e.handleQuickPanelCellsAdded(ctx, session, msg)
	case dto.MsgTypeBlockRefreshStart:
		return e.handleBlockRefreshStart(session, msg)
	case dto.MsgTypeBlockRefreshChunk:
		session.merger.OnChunk(msg.CellId, msg.Content)
		e.broadcastNode(session, msg.StreamId, msg.CellId)
		return ack(msg), nil
	case dto.MsgTypeBlockRefreshComplete:
		session.merger.OnComplete(msg.CellId, msg.Content)
		session.reconciler.Reconcile(session.store, session.tree)
		e.broadcastCells(session, msg.StreamId)
		return ack(msg), nil
	case dto.MsgTypeBlockRefreshError:
		session.merger.OnError(msg.CellId, msg.Content)
		return ack(msg), nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// handleThink creates a fresh aiResponse cell after the anchor, opens its
// streaming session, and hands the prompt to the generation gateway with a
// budget-trimmed slice of the document above it.
func (e *editorService) handleThink(ctx context.Context, session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	anchor := msg.CellId
	cell := &entity.Cell{
		Id:             uuid.New(),
		StreamId:       msg.StreamId,
		Content:        markup.SerializeCell(markup.KindParagraph, nil),
		Type:           entity.CellTypeAIResponse,
		OriginalPrompt: msg.Prompt,
		ModelId:        msg.ModelId,
		CreatedAt:      time.Now(),
	}

	var afterId *uuid.UUID
	prior := session.store.CellsInOrder()
	if anchor != uuid.Nil {
		afterId = &anchor
		if idx := session.tree.IndexOf(anchor); idx >= 0 {
			prior = prior[:idx+1]
		}
	}

	if err := session.store.Add(cell, afterId); err != nil {
		return nil, err
	}
	session.reconciler.Reconcile(session.store, session.tree)

	if err := session.merger.Start(cell.Id, ""); err != nil {
		return nil, err
	}

	e.scheduler.Observe(msg.StreamId, cell.Id, cell.Content, cell.Order)
	e.scheduler.Flush(persist.ReasonStructural)

	err := e.generation.RequestThink(ctx, &dto.ThinkRequest{
		StreamId:     msg.StreamId,
		CellId:       cell.Id,
		Prompt:       msg.Prompt,
		ModelId:      msg.ModelId,
		PriorContext: utils.BuildPriorContext(prior, e.priorBudget),
		ImageURLs:    msg.ImageURLs,
	})
	if err != nil {
		// The cell stays: the user sees an empty response cell and the
		// error, not a vanished prompt.
		session.merger.OnError(cell.Id, err.Error())
		return nil, err
	}

	e.broadcastCells(session, msg.StreamId)
	return &dto.EditorReply{Type: dto.MsgTypeThink, StreamId: msg.StreamId, CellId: cell.Id}, nil
}

func (e *editorService) handleThinkCancel(session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	e.generation.CancelGeneration(msg.CellId)
	session.store.Abandon(msg.CellId) //nolint:errcheck // no session means nothing to abandon
	return ack(msg), nil
}

// handleCellInput applies a local edit: replace the node's inline content,
// mirror it into the store, and let the debounce window decide when it hits
// the database.
func (e *editorService) handleCellInput(session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	if session.tree.Node(msg.CellId) == nil {
		return nil, doctree.ErrNodeNotFound
	}

	kind, inline := markup.HydrateCell(msg.Content)
	tx := doctree.NewTransaction(true).
		ReplaceInline(msg.CellId, inline).
		SetBlockKind(msg.CellId, kind)
	if _, err := session.tree.Apply(tx); err != nil {
		return nil, err
	}

	content := markup.SerializeCell(kind, inline)
	if err := session.store.Update(msg.CellId, cellstore.Patch{Content: &content}); err != nil {
		return nil, err
	}

	cell, err := session.store.Get(msg.CellId)
	if err != nil {
		return nil, err
	}
	e.scheduler.Observe(msg.StreamId, msg.CellId, content, cell.Order)

	return ack(msg), nil
}

// handleCellPaste inserts a copied fragment after the anchor cell. Every
// pasted cell gets a fresh identity first, so pasting within the same stream
// can never collide, then the store adopts the new nodes.
func (e *editorService) handleCellPaste(session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	var fragment []markup.Node
	if err := json.Unmarshal([]byte(msg.Fragment), &fragment); err != nil {
		return nil, fmt.Errorf("malformed paste fragment: %w", err)
	}

	clipboard.RewriteIDs(fragment)

	insertAt := session.tree.Len()
	if msg.CellId != uuid.Nil {
		if idx := session.tree.IndexOf(msg.CellId); idx >= 0 {
			insertAt = idx + 1
		}
	}

	tx := doctree.NewTransaction(true)
	added := 0
	for _, frag := range fragment {
		if frag.Type != markup.TypeCell {
			continue
		}
		id, err := uuid.Parse(frag.CellId)
		if err != nil {
			continue
		}
		kind := markup.BlockKind(frag.BlockKind)
		if kind == "" {
			kind = markup.KindParagraph
		}
		node := &doctree.Node{
			ID:        id,
			CellType:  entity.CellType(frag.CellType),
			BlockKind: kind,
			Inline:    frag.Children,
		}
		if node.CellType == "" {
			node.CellType = entity.CellTypeText
		}
		tx.InsertNode(insertAt+added, node)
		added++
	}
	if added == 0 {
		return ack(msg), nil
	}

	if _, err := session.tree.Apply(tx); err != nil {
		return nil, err
	}

	adopted := session.reconciler.AdoptTreeNodes(session.store, session.tree)
	for _, cell := range session.store.CellsInOrder() {
		e.scheduler.Observe(msg.StreamId, cell.Id, cell.Content, cell.Order)
	}
	e.scheduler.Flush(persist.ReasonStructural)

	e.log.Info("editor", "pasted cells adopted", map[string]interface{}{
		"stream_id": msg.StreamId.String(),
		"adopted":   adopted,
	})

	e.broadcastCells(session, msg.StreamId)
	return ack(msg), nil
}

func (e *editorService) handleKeyDown(session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	handled := session.navigator.Handle(boundary.KeyEvent{
		Key:   boundary.Key(msg.Key),
		Shift: msg.Shift,
		Ctrl:  msg.Ctrl,
		Alt:   msg.Alt,
		Meta:  msg.Meta,
	})
	if handled {
		e.broadcastCells(session, msg.StreamId)
	}

	reply := ack(msg)
	reply.Content = fmt.Sprintf("%t", handled)
	return reply, nil
}

// handleQuickPanelCellsAdded pulls cells another surface wrote straight to
// the database into the live session. The reconcile pass carries them into
// the tree.
func (e *editorService) handleQuickPanelCellsAdded(ctx context.Context, session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	if len(msg.CellIds) == 0 {
		return ack(msg), nil
	}

	cells, err := e.cellRepo.FindAll(ctx,
		specification.ByIDs{IDs: msg.CellIds},
		specification.OrderBy{Field: "cell_order"},
	)
	if err != nil {
		return nil, err
	}

	added := make([]*entity.Cell, 0, len(cells))
	for _, cell := range cells {
		if _, getErr := session.store.Get(cell.Id); getErr == nil {
			continue // already present
		}
		if err := session.store.Add(cell, nil); err != nil {
			return nil, err
		}
		e.scheduler.SetBaseline(msg.StreamId, cell.Id, cell.Content, cell.Order)
		added = append(added, cell)
	}

	session.reconciler.Reconcile(session.store, session.tree)

	if msg.TriggerAI {
		for _, cell := range added {
			prompt := cell.OriginalPrompt
			if prompt == "" {
				_, inline := markup.HydrateCell(cell.Content)
				prompt = markup.PlainText(inline)
			}
			if prompt == "" {
				continue
			}
			if err := session.merger.Start(cell.Id, ""); err != nil {
				continue
			}
			if err := e.generation.RequestThink(ctx, &dto.ThinkRequest{
				StreamId: msg.StreamId,
				CellId:   cell.Id,
				Prompt:   prompt,
				ModelId:  cell.ModelId,
			}); err != nil {
				session.merger.OnError(cell.Id, err.Error())
			}
		}
	}

	e.broadcastCells(session, msg.StreamId)
	return ack(msg), nil
}

func (e *editorService) handleBlockRefreshStart(session *editorSession, msg *dto.EditorMessage) (*dto.EditorReply, error) {
	// Content carries the prefix to preserve; empty means regenerate the
	// whole cell.
	if err := session.merger.Start(msg.CellId, msg.Content); err != nil {
		return nil, err
	}
	return ack(msg), nil
}

// Generation lifecycle, arriving from NATS rather than the websocket.

func (e *editorService) OnGenerationChunk(streamId, cellId uuid.UUID, chunk string) {
	session := e.session(streamId)
	if session == nil {
		return
	}
	session.mu.Lock()
	session.merger.OnChunk(cellId, chunk)
	e.broadcastNode(session, streamId, cellId)
	session.mu.Unlock()
}

func (e *editorService) OnGenerationDone(streamId, cellId uuid.UUID, finalText string) {
	session := e.session(streamId)
	if session == nil {
		return
	}
	session.mu.Lock()
	session.merger.OnComplete(cellId, finalText)
	session.reconciler.Reconcile(session.store, session.tree)
	session.mu.Unlock()

	e.broadcastCells(session, streamId)
}

func (e *editorService) OnGenerationFailed(streamId, cellId uuid.UUID, message string) {
	session := e.session(streamId)
	if session == nil {
		return
	}
	session.mu.Lock()
	session.merger.OnError(cellId, message)
	session.mu.Unlock()

	if e.broadcaster != nil {
		e.broadcaster.BroadcastToStream(streamId, dto.EditorReply{
			Type:     dto.MsgTypeAiError,
			StreamId: streamId,
			CellId:   cellId,
			Error:    message,
		})
	}
}

// broadcastNode pushes a cell's current tree content to attached clients.
// Caller must hold the session lock.
func (e *editorService) broadcastNode(session *editorSession, streamId, cellId uuid.UUID) {
	if e.broadcaster == nil {
		return
	}
	node := session.tree.Node(cellId)
	if node == nil {
		return
	}
	content := markup.SerializeCell(node.BlockKind, node.Inline)

	e.broadcaster.BroadcastToStream(streamId, dto.EditorReply{
		Type:     dto.MsgTypeAiChunk,
		StreamId: streamId,
		CellId:   cellId,
		Content:  content,
	})
}

func (e *editorService) broadcastCells(session *editorSession, streamId uuid.UUID) {
	if e.broadcaster == nil {
		return
	}
	cells := session.store.CellsInOrder()
	responses := make([]dto.ShowCellResponse, 0, len(cells))
	for _, cell := range cells {
		responses = append(responses, *toCellResponse(cell))
	}
	e.broadcaster.BroadcastToStream(streamId, dto.EditorReply{
		Type:     dto.MsgTypeAiComplete,
		StreamId: streamId,
		Cells:    responses,
	})
}

func ack(msg *dto.EditorMessage) *dto.EditorReply {
	return &dto.EditorReply{Type: msg.Type, StreamId: msg.StreamId, CellId: msg.CellId}
}
