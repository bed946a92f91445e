package implementation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/mapper"
	"streamdoc-engine/internal/model"
	"streamdoc-engine/internal/repository/contract"
	"streamdoc-engine/internal/repository/specification"
)

type CellRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CellMapper
}

func NewCellRepository(db *gorm.DB) contract.CellRepository {
	return &CellRepositoryImpl{
		db:     db,
		mapper: mapper.NewCellMapper(),
	}
}

func (r *CellRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CellRepositoryImpl) Create(ctx context.Context, cell *entity.Cell) error {
	m := r.mapper.ToModel(cell)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*cell = *r.mapper.ToEntity(m)
	return nil
}

// Upsert writes a persist-scheduler emission: insert on first save, update on
// every subsequent one. Scheduler writes carry no knowledge of row existence.
func (r *CellRepositoryImpl) Upsert(ctx context.Context, cell *entity.Cell) error {
	m := r.mapper.ToModel(cell)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *CellRepositoryImpl) Update(ctx context.Context, cell *entity.Cell) error {
	m := r.mapper.ToModel(cell)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*cell = *r.mapper.ToEntity(m)
	return nil
}

func (r *CellRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Cell{}, id).Error
}

func (r *CellRepositoryImpl) DeleteAllByStreamId(ctx context.Context, streamId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("stream_id = ?", streamId).Delete(&model.Cell{}).Error
}

func (r *CellRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Cell, error) {
	var m model.Cell
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CellRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Cell, error) {
	var models []*model.Cell
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CellRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Cell{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
