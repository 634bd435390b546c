package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/enums"
)

// VendorWallet is the only mutable money aggregate. Every change is paired
// with a LedgerEntry written in the same transaction.
type VendorWallet struct {
	VendorID         uuid.UUID       `gorm:"column:vendor_id;type:uuid;primaryKey"`
	PendingBalance   decimal.Decimal `gorm:"column:pending_balance;type:numeric(12,2);not null"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:numeric(12,2);not null"`
	LifetimeEarnings decimal.Decimal `gorm:"column:lifetime_earnings;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LedgerEntry is an append-only money movement for a vendor.
type LedgerEntry struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	VendorID         uuid.UUID                   `gorm:"column:vendor_id;type:uuid;not null;index"`
	OrderID          *uuid.UUID                  `gorm:"column:order_id;type:uuid;index"`
	ShipmentID       *uuid.UUID                  `gorm:"column:shipment_id;type:uuid"`
	TransactionType  enums.LedgerTransactionType `gorm:"column:transaction_type;type:ledger_transaction_type_enum;not null"`
	BalanceStatus    enums.BalanceStatus         `gorm:"column:balance_status;type:balance_status_enum;not null"`
	GrossAmount      decimal.Decimal             `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	VendorAmount     decimal.Decimal             `gorm:"column:vendor_amount;type:numeric(12,2);not null"`
	CommissionAmount decimal.Decimal             `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	VATAmount        decimal.Decimal             `gorm:"column:vat_amount;type:numeric(12,2);not null"`
	Reference        *string                     `gorm:"column:reference"`
	Description      string                      `gorm:"column:description;not null"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (l *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
