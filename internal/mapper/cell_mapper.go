package mapper

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/model"
)

type CellMapper struct{}

func NewCellMapper() *CellMapper {
	return &CellMapper{}
}

func (m *CellMapper) ToEntity(c *model.Cell) *entity.Cell {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	out := &entity.Cell{
		Id:              c.Id,
		StreamId:        c.StreamId,
		Content:         c.Content,
		Type:            entity.CellType(c.Type),
		Order:           c.Order,
		OriginalPrompt:  c.OriginalPrompt,
		ModelId:         c.ModelId,
		SourceApp:       c.SourceApp,
		BlockName:       c.BlockName,
		ActiveVersionId: c.ActiveVersionId,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       updatedAt,
	}

	// JSON columns unmarshal best-effort; a corrupt column degrades to the
	// zero value rather than failing the read.
	if len(c.References) > 0 {
		json.Unmarshal(c.References, &out.References) //nolint:errcheck
	}
	if len(c.Modifiers) > 0 {
		json.Unmarshal(c.Modifiers, &out.Modifiers) //nolint:errcheck
	}
	if len(c.Versions) > 0 {
		json.Unmarshal(c.Versions, &out.Versions) //nolint:errcheck
	}
	if len(c.Processing) > 0 {
		var p entity.ProcessingConfig
		if err := json.Unmarshal(c.Processing, &p); err == nil {
			out.Processing = &p
		}
	}

	return out
}

func (m *CellMapper) ToModel(c *entity.Cell) *model.Cell {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	out := &model.Cell{
		Id:              c.Id,
		StreamId:        c.StreamId,
		Content:         c.Content,
		Type:            string(c.Type),
		Order:           c.Order,
		OriginalPrompt:  c.OriginalPrompt,
		ModelId:         c.ModelId,
		SourceApp:       c.SourceApp,
		BlockName:       c.BlockName,
		ActiveVersionId: c.ActiveVersionId,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       updatedAt,
	}

	out.References = marshalJSON(c.References)
	out.Modifiers = marshalJSON(c.Modifiers)
	out.Versions = marshalJSON(c.Versions)
	if c.Processing != nil {
		out.Processing = marshalJSON(c.Processing)
	}

	return out
}

func (m *CellMapper) ToEntities(cells []*model.Cell) []*entity.Cell {
	out := make([]*entity.Cell, len(cells))
	for i, c := range cells {
		out[i] = m.ToEntity(c)
	}
	return out
}

func marshalJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func ParseUUID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
