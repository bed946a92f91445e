package dto

import (
	"time"

	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
)

type CreateCellRequest struct {
	StreamId uuid.UUID       `json:"stream_id" validate:"required"`
	Content  string          `json:"content"`
	Type     entity.CellType `json:"type" validate:"required,oneof=text aiResponse quote"`
	// AfterId positions the new cell after an existing one; nil appends.
	AfterId *uuid.UUID `json:"after_id"`
}

type CreateCellResponse struct {
	Id    uuid.UUID `json:"id"`
	Order int       `json:"order"`
}

type ShowCellResponse struct {
	Id             uuid.UUID       `json:"id"`
	StreamId       uuid.UUID       `json:"stream_id"`
	Content        string          `json:"content"`
	Type           entity.CellType `json:"type"`
	Order          int             `json:"order"`
	OriginalPrompt string          `json:"original_prompt,omitempty"`
	ModelId        string          `json:"model_id,omitempty"`
	SourceApp      string          `json:"source_app,omitempty"`
	BlockName      string          `json:"block_name,omitempty"`
	References     []uuid.UUID     `json:"references,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at"`
}

type UpdateCellRequest struct {
	Id      uuid.UUID
	Content *string          `json:"content"`
	Type    *entity.CellType `json:"type" validate:"omitempty,oneof=text aiResponse quote"`
}

type UpdateCellResponse struct {
	Id uuid.UUID `json:"id"`
}

type ReorderCellRequest struct {
	Id       uuid.UUID
	StreamId uuid.UUID `json:"stream_id" validate:"required"`
	ToIndex  int       `json:"to_index" validate:"gte=0"`
}

type ReorderCellResponse struct {
	// Orders maps every cell id in the stream to its new dense position.
	Orders map[uuid.UUID]int `json:"orders"`
}
