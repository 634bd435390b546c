package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/internal/shipping"
	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for orders, shipments and splits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error)
	FindZone(ctx context.Context, zoneID uuid.UUID) (*models.Zone, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateShipments(ctx context.Context, shipments []models.Shipment) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateSplits(ctx context.Context, splits []models.TransactionSplit) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	LockShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	ListShipments(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error)
	ShipmentItems(ctx context.Context, shipmentID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateShipment(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Catalog loads product snapshots and mutates ready-stock counts.
type Catalog interface {
	FindForOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	RestoreStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// FeeQuoter prices one shipment between its pickup zone and the delivery zone.
type FeeQuoter interface {
	QuoteParcel(ctx context.Context, fromZoneID, toZoneID uuid.UUID, parcel shipping.Parcel) (shipping.ShippingFeeResult, error)
}

// Wallets applies vendor balance side effects inside the caller's transaction.
type Wallets interface {
	CreditPending(ctx context.Context, tx *gorm.DB, credit wallet.SaleCredit) (*models.LedgerEntry, error)
	Release(ctx context.Context, tx *gorm.DB, vendorID, orderID, shipmentID uuid.UUID) (*models.LedgerEntry, error)
	Reverse(ctx context.Context, tx *gorm.DB, vendorID, orderID, shipmentID uuid.UUID, reason enums.OrderStatus) (*models.LedgerEntry, error)
}
