package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/pagination"
)

// Total is the summed vendor amount for one (transaction type, balance status) pair.
type Total struct {
	TransactionType enums.LedgerTransactionType
	BalanceStatus   enums.BalanceStatus
	VendorAmount    decimal.Decimal
}

// Repository persists ledger entries. Entries are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error)
	ListByShipment(ctx context.Context, vendorID, shipmentID uuid.UUID) ([]models.LedgerEntry, error)
	TotalsByVendor(ctx context.Context, vendorID uuid.UUID) ([]Total, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByVendor returns entries newest first, strictly after the cursor when one is given.
func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID)
	if cursor != nil {
		clause, args := cursor.Before()
		query = query.Where(clause, args...)
	}
	query = query.
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByShipment(ctx context.Context, vendorID, shipmentID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND shipment_id = ?", vendorID, shipmentID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

type totalRow struct {
	TransactionType enums.LedgerTransactionType
	BalanceStatus   enums.BalanceStatus
	VendorAmount    decimal.NullDecimal
}

func (r *repository) TotalsByVendor(ctx context.Context, vendorID uuid.UUID) ([]Total, error) {
	var rows []totalRow
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("transaction_type, balance_status, SUM(vendor_amount) AS vendor_amount").
		Where("vendor_id = ?", vendorID).
		Group("transaction_type, balance_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	totals := make([]Total, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, Total{
			TransactionType: row.TransactionType,
			BalanceStatus:   row.BalanceStatus,
			VendorAmount:    money.Round(row.VendorAmount.Decimal),
		})
	}
	return totals, nil
}
