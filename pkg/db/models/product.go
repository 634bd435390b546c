package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/enums"
)

// Product is the vendor listing together with its cached price breakdown.
// Orders copy the cached fields; they never recompute pricing.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID          uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null"`
	CategoryID        uuid.UUID           `gorm:"column:category_id;type:uuid;not null"`
	PickupLocationID  uuid.UUID           `gorm:"column:pickup_location_id;type:uuid;not null"`
	Name              string              `gorm:"column:name;not null"`
	Status            enums.ProductStatus `gorm:"column:status;type:product_status_enum;not null;default:'active'"`
	StockMode         enums.StockMode     `gorm:"column:stock_mode;type:stock_mode_enum;not null;default:'ready_stock'"`
	IsLocalOnly       bool                `gorm:"column:is_local_only;not null;default:false"`
	QuantityAvailable int                 `gorm:"column:quantity_available;not null;default:0"`
	WeightKg          decimal.Decimal     `gorm:"column:weight_kg;type:numeric(10,3);not null"`
	LengthCm          decimal.Decimal     `gorm:"column:length_cm;type:numeric(10,2);not null"`
	WidthCm           decimal.Decimal     `gorm:"column:width_cm;type:numeric(10,2);not null"`
	HeightCm          decimal.Decimal     `gorm:"column:height_cm;type:numeric(10,2);not null"`
	CostPrice         decimal.Decimal     `gorm:"column:cost_price;type:numeric(12,2);not null"`
	CustomUplift      decimal.NullDecimal `gorm:"column:custom_uplift;type:numeric(12,2)"`
	CustomRate        decimal.NullDecimal `gorm:"column:custom_rate;type:numeric(6,4)"`

	FinalPrice         decimal.Decimal `gorm:"column:final_price;type:numeric(12,2);not null"`
	CooperativeFee     decimal.Decimal `gorm:"column:cooperative_fee;type:numeric(12,2);not null"`
	ParentUplift       decimal.Decimal `gorm:"column:parent_uplift;type:numeric(12,2);not null"`
	MarketplaceUplift  decimal.Decimal `gorm:"column:marketplace_uplift;type:numeric(12,2);not null"`
	LogisticsSurcharge decimal.Decimal `gorm:"column:logistics_surcharge;type:numeric(12,2);not null"`
	VendorVAT          decimal.Decimal `gorm:"column:vendor_vat;type:numeric(12,2);not null"`
	PlatformVAT        decimal.Decimal `gorm:"column:platform_vat;type:numeric(12,2);not null"`
	BucketA            decimal.Decimal `gorm:"column:bucket_a;type:numeric(12,2);not null"`
	BucketB            decimal.Decimal `gorm:"column:bucket_b;type:numeric(12,2);not null"`
	BucketC            decimal.Decimal `gorm:"column:bucket_c;type:numeric(12,2);not null"`
	BucketD            decimal.Decimal `gorm:"column:bucket_d;type:numeric(12,2);not null"`
	PricedAt           *time.Time      `gorm:"column:priced_at"`

	Vendor         *Vendor         `gorm:"foreignKey:VendorID"`
	PickupLocation *PickupLocation `gorm:"foreignKey:PickupLocationID"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
