package entity

import (
	"time"

	"github.com/google/uuid"
)

// Stream is one open document: an ordered list of cells rendered in a single
// continuous surface.
type Stream struct {
	Id        uuid.UUID
	Title     string
	UserId    uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
