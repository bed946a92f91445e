package mapper

import (
	"time"

	"gorm.io/gorm"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/model"
)

type StreamMapper struct{}

func NewStreamMapper() *StreamMapper {
	return &StreamMapper{}
}

func (m *StreamMapper) ToEntity(s *model.Stream) *entity.Stream {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.Stream{
		Id:        s.Id,
		Title:     s.Title,
		UserId:    s.UserId,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *StreamMapper) ToModel(s *entity.Stream) *model.Stream {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.Stream{
		Id:        s.Id,
		Title:     s.Title,
		UserId:    s.UserId,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

func (m *StreamMapper) ToEntities(streams []*model.Stream) []*entity.Stream {
	out := make([]*entity.Stream, len(streams))
	for i, s := range streams {
		out[i] = m.ToEntity(s)
	}
	return out
}
