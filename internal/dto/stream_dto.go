package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateStreamRequest struct {
	Title string `json:"title" validate:"required"`
}

type CreateStreamResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowStreamResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type UpdateStreamRequest struct {
	Id    uuid.UUID
	Title string `json:"title" validate:"required"`
}

type UpdateStreamResponse struct {
	Id uuid.UUID `json:"id"`
}

// LoadStreamResponse carries the stream plus its cells in document order.
// This is what the editor hydrates a document tree from.
type LoadStreamResponse struct {
	Stream ShowStreamResponse `json:"stream"`
	Cells  []ShowCellResponse `json:"cells"`
}
