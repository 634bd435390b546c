package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/pagination"
)

// Service records and reads vendor ledger entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error)
	HasEntry(ctx context.Context, vendorID, shipmentID uuid.UUID, txType enums.LedgerTransactionType) (bool, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*Page, error)
	ListByShipment(ctx context.Context, vendorID, shipmentID uuid.UUID) ([]models.LedgerEntry, error)
	TotalsByVendor(ctx context.Context, vendorID uuid.UUID) ([]Total, error)
}

type service struct {
	repo Repository
}

// Page is one cursor page of ledger entries, newest first. NextCursor is empty on the last page.
type Page struct {
	Entries    []models.LedgerEntry
	NextCursor string
}

// RecordEntryInput captures the immutable data a ledger entry requires.
// Sales and releases carry positive vendor amounts, refunds and payouts negative ones.
type RecordEntryInput struct {
	VendorID         uuid.UUID
	OrderID          *uuid.UUID
	ShipmentID       *uuid.UUID
	Type             enums.LedgerTransactionType
	BalanceStatus    enums.BalanceStatus
	GrossAmount      decimal.Decimal
	VendorAmount     decimal.Decimal
	CommissionAmount decimal.Decimal
	VATAmount        decimal.Decimal
	Reference        string
	Description      string
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error) {
	if err := validateEntry(input); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		VendorID:         input.VendorID,
		OrderID:          input.OrderID,
		ShipmentID:       input.ShipmentID,
		TransactionType:  input.Type,
		BalanceStatus:    input.BalanceStatus,
		GrossAmount:      money.Round(input.GrossAmount),
		VendorAmount:     money.Round(input.VendorAmount),
		CommissionAmount: money.Round(input.CommissionAmount),
		VATAmount:        money.Round(input.VATAmount),
		Description:      input.Description,
	}
	if ref := strings.TrimSpace(input.Reference); ref != "" {
		entry.Reference = &ref
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert ledger entry")
	}
	return entry, nil
}

func validateEntry(input RecordEntryInput) error {
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid ledger transaction type %q", input.Type)
	}
	if !input.BalanceStatus.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid balance status %q", input.BalanceStatus)
	}
	if strings.TrimSpace(input.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	switch input.Type {
	case enums.LedgerTransactionSale, enums.LedgerTransactionEscrowRelease:
		if input.OrderID == nil || input.ShipmentID == nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s entries require order and shipment ids", input.Type)
		}
		if input.VendorAmount.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s vendor amount must not be negative", input.Type)
		}
	case enums.LedgerTransactionRefund:
		if input.OrderID == nil || input.ShipmentID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund entries require order and shipment ids")
		}
		if input.VendorAmount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund vendor amount must not be positive")
		}
	case enums.LedgerTransactionPayout:
		if !input.VendorAmount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout vendor amount must be negative")
		}
	}
	return nil
}

func (s *service) HasEntry(ctx context.Context, vendorID, shipmentID uuid.UUID, txType enums.LedgerTransactionType) (bool, error) {
	if vendorID == uuid.Nil || shipmentID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "vendor id and shipment id are required")
	}
	if !txType.IsValid() {
		return false, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid ledger transaction type %q", txType)
	}

	entries, err := s.repo.ListByShipment(ctx, vendorID, shipmentID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	for _, entry := range entries {
		if entry.TransactionType == txType {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*Page, error) {
	scope := "ledger:" + vendorID.String()
	cursor, err := pagination.ParseCursor(params.Cursor, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	entries, err := s.repo.ListByVendor(ctx, vendorID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	page := &Page{}
	page.Entries, page.NextCursor = pagination.Trim(entries, params.Limit, scope, func(entry models.LedgerEntry) (time.Time, uuid.UUID) {
		return entry.CreatedAt, entry.ID
	})
	return page, nil
}

func (s *service) ListByShipment(ctx context.Context, vendorID, shipmentID uuid.UUID) ([]models.LedgerEntry, error) {
	entries, err := s.repo.ListByShipment(ctx, vendorID, shipmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

func (s *service) TotalsByVendor(ctx context.Context, vendorID uuid.UUID) ([]Total, error) {
	totals, err := s.repo.TotalsByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger entries")
	}
	return totals, nil
}
