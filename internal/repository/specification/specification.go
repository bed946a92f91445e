package specification

import "gorm.io/gorm"

// Specification composes query constraints onto a gorm chain.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
