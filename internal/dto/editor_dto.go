package dto

import "github.com/google/uuid"

// Message types accepted over the editor websocket.
const (
	MsgTypeThink                = "think"
	MsgTypeThinkCancel          = "think.cancel"
	MsgTypeAiChunk              = "aiChunk"
	MsgTypeAiComplete           = "aiComplete"
	MsgTypeAiError              = "aiError"
	MsgTypeBlockRefreshStart    = "blockRefreshStart"
	MsgTypeBlockRefreshChunk    = "blockRefreshChunk"
	MsgTypeBlockRefreshComplete = "blockRefreshComplete"
	MsgTypeBlockRefreshError    = "blockRefreshError"
	MsgTypeQuickPanelCellsAdded = "quickPanelCellsAdded"
	MsgTypeCellInput            = "cellInput"
	MsgTypeCellPaste            = "cellPaste"
	MsgTypeKeyDown              = "keyDown"
	MsgTypeFocusLost            = "focusLost"
	MsgTypeStreamSwitch         = "streamSwitch"
	MsgTypeDragStart            = "dragStart"
	MsgTypeDragEnd              = "dragEnd"
)

// EditorMessage is the envelope for every inbound websocket frame.
// Only the fields relevant to its Type are populated.
type EditorMessage struct {
	Type     string    `json:"type" validate:"required"`
	StreamId uuid.UUID `json:"stream_id" validate:"required"`
	CellId   uuid.UUID `json:"cell_id,omitempty"`

	// cellInput / aiChunk / aiComplete
	Content string `json:"content,omitempty"`

	// think
	Prompt    string   `json:"prompt,omitempty"`
	ModelId   string   `json:"model_id,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`

	// cellPaste: serialized markup fragment copied from another stream
	Fragment string `json:"fragment,omitempty"`

	// keyDown
	Key   string `json:"key,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Meta  bool   `json:"meta,omitempty"`

	// quickPanelCellsAdded
	CellIds   []uuid.UUID `json:"cell_ids,omitempty"`
	TriggerAI bool        `json:"trigger_ai,omitempty"`
}

// EditorReply is the envelope for outbound frames to editor clients.
type EditorReply struct {
	Type     string      `json:"type"`
	StreamId uuid.UUID   `json:"stream_id"`
	CellId   uuid.UUID   `json:"cell_id,omitempty"`
	Content  string      `json:"content,omitempty"`
	Error    string      `json:"error,omitempty"`
	Cells    interface{} `json:"cells,omitempty"`
}
