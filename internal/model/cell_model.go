package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cell mirrors the in-memory cell entity exactly; list-valued metadata is
// stored as JSON columns.
type Cell struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	StreamId        uuid.UUID `gorm:"type:uuid;not null;index"`
	Content         string    `gorm:"type:text"`
	Type            string    `gorm:"type:varchar(32);not null;default:'text'"`
	Order           int       `gorm:"column:cell_order;not null;index"`
	OriginalPrompt  string    `gorm:"type:text"`
	ModelId         string    `gorm:"type:varchar(128)"`
	SourceApp       string    `gorm:"type:varchar(128)"`
	BlockName       string    `gorm:"type:varchar(255)"`
	References      datatypes.JSON
	Modifiers       datatypes.JSON
	Versions        datatypes.JSON
	ActiveVersionId string `gorm:"type:varchar(64)"`
	Processing      datatypes.JSON
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (Cell) TableName() string {
	return "cells"
}
