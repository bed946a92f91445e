package contract

import (
	"context"

	"github.com/google/uuid"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/repository/specification"
)

type StreamRepository interface {
	Create(ctx context.Context, stream *entity.Stream) error
	Update(ctx context.Context, stream *entity.Stream) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Stream, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Stream, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
