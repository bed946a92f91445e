package dto

import "github.com/google/uuid"

// ThinkRequest is published to the generation gateway when a user asks
// for an AI response. PriorContext is the budget-trimmed markdown of the
// cells above the insertion point.
type ThinkRequest struct {
	StreamId     uuid.UUID `json:"stream_id" validate:"required"`
	CellId       uuid.UUID `json:"cell_id" validate:"required"`
	Prompt       string    `json:"prompt" validate:"required"`
	ModelId      string    `json:"model_id"`
	PriorContext string    `json:"prior_context"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
}

// ThinkCancel asks the gateway to stop an in-flight generation. Delivery
// is best effort; chunks already in flight may still arrive and are
// dropped by the session state check.
type ThinkCancel struct {
	StreamId uuid.UUID `json:"stream_id" validate:"required"`
	CellId   uuid.UUID `json:"cell_id" validate:"required"`
}

// SaveCellMessage is the persist-queue payload for a single cell write.
type SaveCellMessage struct {
	CellId   uuid.UUID `json:"cell_id" validate:"required"`
	StreamId uuid.UUID `json:"stream_id" validate:"required"`
	Content  string    `json:"content"`
	Order    int       `json:"order" validate:"gte=0"`
	Reason   string    `json:"reason"`
}

// DeleteCellMessage is the persist-queue payload for a cell removal.
type DeleteCellMessage struct {
	CellId   uuid.UUID `json:"cell_id" validate:"required"`
	StreamId uuid.UUID `json:"stream_id" validate:"required"`
}
