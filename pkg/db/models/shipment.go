package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/enums"
)

// Shipment groups the order items that leave from one pickup location.
// ShippingFee is the gross rate-card fee; DeliveryFee is what the customer pays.
type Shipment struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	PickupLocationID   uuid.UUID         `gorm:"column:pickup_location_id;type:uuid;not null"`
	FromZoneID         uuid.UUID         `gorm:"column:from_zone_id;type:uuid;not null"`
	ToZoneID           uuid.UUID         `gorm:"column:to_zone_id;type:uuid;not null"`
	TrackingNumber     string            `gorm:"column:tracking_number;not null;uniqueIndex"`
	Status             enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null"`
	ItemCount          int               `gorm:"column:item_count;not null"`
	TotalWeightKg      decimal.Decimal   `gorm:"column:total_weight_kg;type:numeric(10,3);not null"`
	VolumetricWeightKg decimal.Decimal   `gorm:"column:volumetric_weight_kg;type:numeric(10,2);not null"`
	ChargeableWeightKg decimal.Decimal   `gorm:"column:chargeable_weight_kg;type:numeric(10,3);not null"`
	ShippingFee        decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	SubsidyAmount      decimal.Decimal   `gorm:"column:subsidy_amount;type:numeric(12,2);not null"`
	DeliveryFee        decimal.Decimal   `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	CODAmountDue       decimal.Decimal   `gorm:"column:cod_amount_due;type:numeric(12,2);not null"`
	DeliveredAt        *time.Time        `gorm:"column:delivered_at"`
	EscrowMaturedAt    *time.Time        `gorm:"column:escrow_matured_at"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:ShipmentID"`
}

func (s *Shipment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// TransactionSplit is the durable five-bucket decomposition of one order item.
// BucketA..D are line totals (unit bucket × quantity); BucketE is the item's
// share of its shipment's delivery fee.
type TransactionSplit struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex"`
	ShipmentID  uuid.UUID       `gorm:"column:shipment_id;type:uuid;not null"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	BucketA     decimal.Decimal `gorm:"column:bucket_a;type:numeric(12,2);not null"`
	BucketB     decimal.Decimal `gorm:"column:bucket_b;type:numeric(12,2);not null"`
	BucketC     decimal.Decimal `gorm:"column:bucket_c;type:numeric(12,2);not null"`
	BucketD     decimal.Decimal `gorm:"column:bucket_d;type:numeric(12,2);not null"`
	BucketE     decimal.Decimal `gorm:"column:bucket_e;type:numeric(12,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (t *TransactionSplit) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
