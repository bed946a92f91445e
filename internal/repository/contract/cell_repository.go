package contract

import (
	"context"

	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/repository/specification"
)

type CellRepository interface {
	Create(ctx context.Context, cell *entity.Cell) error
	Upsert(ctx context.Context, cell *entity.Cell) error
	Update(ctx context.Context, cell *entity.Cell) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllByStreamId(ctx context.Context, streamId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Cell, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Cell, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
