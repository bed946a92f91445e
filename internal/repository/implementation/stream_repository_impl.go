package implementation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/mapper"
	"streamdoc-engine/internal/model"
	"streamdoc-engine/internal/repository/contract"
	"streamdoc-engine/internal/repository/specification"
)

type StreamRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StreamMapper
}

func NewStreamRepository(db *gorm.DB) contract.StreamRepository {
	return &StreamRepositoryImpl{
		db:     db,
		mapper: mapper.NewStreamMapper(),
	}
}

func (r *StreamRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *StreamRepositoryImpl) Create(ctx context.Context, stream *entity.Stream) error {
	m := r.mapper.ToModel(stream)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*stream = *r.mapper.ToEntity(m)
	return nil
}

func (r *StreamRepositoryImpl) Update(ctx context.Context, stream *entity.Stream) error {
	m := r.mapper.ToModel(stream)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*stream = *r.mapper.ToEntity(m)
	return nil
}

func (r *StreamRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Stream{}, id).Error
}

func (r *StreamRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Stream, error) {
	var m model.Stream
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *StreamRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Stream, error) {
	var models []*model.Stream
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *StreamRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Stream{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
