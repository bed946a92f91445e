package entity

import (
	"time"

	"github.com/google/uuid"
)

// CellType distinguishes who authored a cell's content.
type CellType string

const (
	CellTypeText       CellType = "text"
	CellTypeAIResponse CellType = "aiResponse"
	CellTypeQuote      CellType = "quote"
)

// Modifier is one transform prompt applied to a cell, in application order.
type Modifier struct {
	Id        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	AppliedAt time.Time `json:"appliedAt"`
}

// Version is a content snapshot taken when a modifier was applied.
type Version struct {
	Id         string    `json:"id"`
	Content    string    `json:"content"`
	ModifierId string    `json:"modifierId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProcessingConfig controls when a cell is re-generated without user action.
type ProcessingConfig struct {
	RefreshTrigger string `json:"refreshTrigger,omitempty"` // "manual" | "onOpen" | "onSourceChange"
}

// Cell is one independently addressable unit of document content.
// Content holds the serialized markup form; Order is dense and zero-based
// within the owning stream.
type Cell struct {
	Id              uuid.UUID
	StreamId        uuid.UUID
	Content         string
	Type            CellType
	Order           int
	OriginalPrompt  string
	ModelId         string
	SourceApp       string
	BlockName       string
	References      []uuid.UUID
	Modifiers       []Modifier
	Versions        []Version
	ActiveVersionId string
	Processing      *ProcessingConfig
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Clone returns a deep copy so store snapshots can't be mutated by callers.
func (c *Cell) Clone() *Cell {
	if c == nil {
		return nil
	}
	out := *c
	out.References = append([]uuid.UUID(nil), c.References...)
	out.Modifiers = append([]Modifier(nil), c.Modifiers...)
	out.Versions = append([]Version(nil), c.Versions...)
	if c.Processing != nil {
		p := *c.Processing
		out.Processing = &p
	}
	if c.UpdatedAt != nil {
		t := *c.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}
