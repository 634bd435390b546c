package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/enums"
)

// Order is the customer-facing aggregate spanning one or more shipments.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status_enum;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:payment_method_enum;not null"`
	DeliveryAddress string              `gorm:"column:delivery_address;not null"`
	DeliveryZoneID  uuid.UUID           `gorm:"column:delivery_zone_id;type:uuid;not null"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	SubsidyTotal    decimal.Decimal     `gorm:"column:subsidy_total;type:numeric(12,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Currency        enums.Currency      `gorm:"column:currency;not null;default:'EGP'"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	ReturnedAt      *time.Time          `gorm:"column:returned_at"`

	Items     []OrderItem        `gorm:"foreignKey:OrderID"`
	Shipments []Shipment         `gorm:"foreignKey:OrderID"`
	Splits    []TransactionSplit `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a product's cached pricing at order time.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ShipmentID       *uuid.UUID      `gorm:"column:shipment_id;type:uuid;index"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VendorID         uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	ParentVendorID   *uuid.UUID      `gorm:"column:parent_vendor_id;type:uuid"`
	PickupLocationID uuid.UUID       `gorm:"column:pickup_location_id;type:uuid;not null"`
	ProductName      string          `gorm:"column:product_name;not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice       decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	UnitWeightKg     decimal.Decimal `gorm:"column:unit_weight_kg;type:numeric(10,3);not null"`
	UnitVolumeCm3    decimal.Decimal `gorm:"column:unit_volume_cm3;type:numeric(14,2);not null"`
	UnitBucketA      decimal.Decimal `gorm:"column:unit_bucket_a;type:numeric(12,2);not null"`
	UnitBucketB      decimal.Decimal `gorm:"column:unit_bucket_b;type:numeric(12,2);not null"`
	UnitBucketC      decimal.Decimal `gorm:"column:unit_bucket_c;type:numeric(12,2);not null"`
	UnitBucketD      decimal.Decimal `gorm:"column:unit_bucket_d;type:numeric(12,2);not null"`
	StockMode        enums.StockMode `gorm:"column:stock_mode;type:stock_mode_enum;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
