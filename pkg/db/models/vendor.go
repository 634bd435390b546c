package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/enums"
)

// Vendor is a flat seller record. Sub-vendors reference their parent and carry
// the uplift rule the parent applies on top of their base prices.
type Vendor struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name            string              `gorm:"column:name;not null"`
	ParentVendorID  *uuid.UUID          `gorm:"column:parent_vendor_id;type:uuid"`
	IsVATRegistered bool                `gorm:"column:is_vat_registered;not null;default:false"`
	IsLegalized     bool                `gorm:"column:is_legalized;not null;default:false"`
	UpliftType      *enums.UpliftType   `gorm:"column:uplift_type;type:uplift_type_enum"`
	UpliftValue     decimal.NullDecimal `gorm:"column:uplift_value;type:numeric(12,2)"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// PickupLocation is a vendor warehouse or storefront. Shipments are grouped by it.
type PickupLocation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	ZoneID    uuid.UUID `gorm:"column:zone_id;type:uuid;not null"`
	Label     string    `gorm:"column:label;not null"`
	Address   string    `gorm:"column:address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *PickupLocation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
