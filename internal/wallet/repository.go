package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// Repository manages vendor wallet rows and the shipment reads escrow reporting needs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LockForUpdate creates the wallet if missing and returns it under a row lock.
func (r *Repository) LockForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error) {
	seed := models.VendorWallet{
		VendorID:         vendorID,
		PendingBalance:   money.Zero,
		AvailableBalance: money.Zero,
		LifetimeEarnings: money.Zero,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	var wallet models.VendorWallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "vendor_id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Find returns the wallet without locking it.
func (r *Repository) Find(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error) {
	var wallet models.VendorWallet
	if err := r.db.WithContext(ctx).First(&wallet, "vendor_id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SaveBalances writes the three balance columns of a locked wallet.
func (r *Repository) SaveBalances(ctx context.Context, wallet *models.VendorWallet) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorWallet{}).
		Where("vendor_id = ?", wallet.VendorID).
		Updates(map[string]any{
			"pending_balance":   wallet.PendingBalance,
			"available_balance": wallet.AvailableBalance,
			"lifetime_earnings": wallet.LifetimeEarnings,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// VendorExists reports whether the vendor row is present.
func (r *Repository) VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeliveredShipmentsForVendor lists delivered shipments carrying at least one of the vendor's items.
func (r *Repository) DeliveredShipmentsForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	vendorShipments := r.db.Model(&models.OrderItem{}).
		Select("shipment_id").
		Where("vendor_id = ? AND shipment_id IS NOT NULL", vendorID)
	if err := r.db.WithContext(ctx).
		Where("status = ? AND delivered_at IS NOT NULL", enums.OrderStatusDelivered).
		Where("id IN (?)", vendorShipments).
		Order("delivered_at ASC").
		Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

// VendorItems returns the vendor's order items within the given shipments.
func (r *Repository) VendorItems(ctx context.Context, vendorID uuid.UUID, shipmentIDs []uuid.UUID) ([]models.OrderItem, error) {
	if len(shipmentIDs) == 0 {
		return nil, nil
	}
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND shipment_id IN ?", vendorID, shipmentIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListMaturedShipments returns delivered shipments whose hold ended at or before cutoff
// and that were not marked yet.
func (r *Repository) ListMaturedShipments(ctx context.Context, cutoff time.Time, limit int) ([]models.Shipment, error) {
	var shipments []models.Shipment
	query := r.db.WithContext(ctx).
		Where("status = ? AND delivered_at IS NOT NULL AND delivered_at <= ? AND escrow_matured_at IS NULL", enums.OrderStatusDelivered, cutoff).
		Order("delivered_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

// LockUnmaturedShipment re-reads the shipment under a row lock. It returns nil when another
// sweeper holds the row or already marked it.
func (r *Repository) LockUnmaturedShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	var shipments []models.Shipment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("id = ? AND escrow_matured_at IS NULL", shipmentID).
		Limit(1).
		Find(&shipments).Error; err != nil {
		return nil, err
	}
	if len(shipments) == 0 {
		return nil, nil
	}
	return &shipments[0], nil
}

func (r *Repository) MarkEscrowMatured(ctx context.Context, shipmentID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ? AND escrow_matured_at IS NULL", shipmentID).
		Update("escrow_matured_at", at).Error
}

// ShipmentVendorIDs lists the distinct vendors with items in the shipment.
func (r *Repository) ShipmentVendorIDs(ctx context.Context, shipmentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("shipment_id = ?", shipmentID).
		Distinct("vendor_id").
		Order("vendor_id").
		Pluck("vendor_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
