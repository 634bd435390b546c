package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category carries the marketplace uplift rate, either pinned or as a range.
type Category struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	UpliftRate    decimal.NullDecimal `gorm:"column:uplift_rate;type:numeric(6,4)"`
	UpliftMin     decimal.NullDecimal `gorm:"column:uplift_min;type:numeric(6,4)"`
	UpliftDefault decimal.NullDecimal `gorm:"column:uplift_default;type:numeric(6,4)"`
	UpliftMax     decimal.NullDecimal `gorm:"column:uplift_max;type:numeric(6,4)"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
