package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateCard prices shipments between two zones.
type RateCard struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FromZoneID uuid.UUID       `gorm:"column:from_zone_id;type:uuid;not null"`
	ToZoneID   uuid.UUID       `gorm:"column:to_zone_id;type:uuid;not null"`
	BaseRate   decimal.Decimal `gorm:"column:base_rate;type:numeric(12,2);not null"`
	PerKgRate  decimal.Decimal `gorm:"column:per_kg_rate;type:numeric(12,2);not null"`
	IsActive   bool            `gorm:"column:is_active;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RateCard) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
