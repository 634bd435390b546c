package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/internal/ledger"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/metrics"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
	"github.com/arooba/marketplace-backend/pkg/pagination"
)

// TxRunner opens transactions; satisfied by *db.Client.
type TxRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the wallet service.
type ServiceParams struct {
	DB         TxRunner
	Ledger     ledger.Service
	Outbox     outbox.Emitter
	Metrics    *metrics.MarketplaceMetrics
	Logger     *logger.Logger
	HoldPeriod time.Duration
}

// Service moves vendor funds between pending and available balances. Every balance change
// appends a ledger entry first and then updates the locked wallet row in the same transaction.
type Service struct {
	db         TxRunner
	repo       *Repository
	ledger     ledger.Service
	outbox     outbox.Emitter
	metrics    *metrics.MarketplaceMetrics
	logg       *logger.Logger
	holdPeriod time.Duration
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		db:         params.DB,
		repo:       NewRepository(params.DB.DB()),
		ledger:     params.Ledger,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
		holdPeriod: params.HoldPeriod,
		now:        time.Now,
	}, nil
}

// SaleCredit is what one vendor earns from one shipment of a new order.
type SaleCredit struct {
	VendorID         uuid.UUID
	OrderID          uuid.UUID
	ShipmentID       uuid.UUID
	OrderNumber      string
	GrossAmount      decimal.Decimal
	VendorAmount     decimal.Decimal
	CommissionAmount decimal.Decimal
	VATAmount        decimal.Decimal
}

// CreditPending records a pending sale and grows the pending balance and lifetime earnings.
func (s *Service) CreditPending(ctx context.Context, tx *gorm.DB, credit SaleCredit) (*models.LedgerEntry, error) {
	if credit.VendorAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor amount must not be negative")
	}
	entry, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
		VendorID:         credit.VendorID,
		OrderID:          &credit.OrderID,
		ShipmentID:       &credit.ShipmentID,
		Type:             enums.LedgerTransactionSale,
		BalanceStatus:    enums.BalanceStatusPending,
		GrossAmount:      credit.GrossAmount,
		VendorAmount:     credit.VendorAmount,
		CommissionAmount: credit.CommissionAmount,
		VATAmount:        credit.VATAmount,
		Description:      fmt.Sprintf("sale %s", credit.OrderNumber),
	})
	if err != nil {
		return nil, err
	}

	err = s.adjust(ctx, tx, credit.VendorID, func(w *models.VendorWallet) {
		w.PendingBalance = w.PendingBalance.Add(entry.VendorAmount)
		w.LifetimeEarnings = w.LifetimeEarnings.Add(entry.VendorAmount)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddLedgerEntries(string(enums.LedgerTransactionSale), 1)
	return entry, nil
}

// position summarizes the ledger for one (vendor, shipment) pair.
type position struct {
	gross      decimal.Decimal
	vendor     decimal.Decimal
	commission decimal.Decimal
	vat        decimal.Decimal
	released   bool
	reversed   bool
}

func (s *Service) position(ctx context.Context, tx *gorm.DB, vendorID, shipmentID uuid.UUID) (position, error) {
	entries, err := s.ledger.WithTx(tx).ListByShipment(ctx, vendorID, shipmentID)
	if err != nil {
		return position{}, err
	}
	pos := position{gross: money.Zero, vendor: money.Zero, commission: money.Zero, vat: money.Zero}
	for _, entry := range entries {
		switch entry.TransactionType {
		case enums.LedgerTransactionSale:
			pos.gross = pos.gross.Add(entry.GrossAmount)
			pos.vendor = pos.vendor.Add(entry.VendorAmount)
			pos.commission = pos.commission.Add(entry.CommissionAmount)
			pos.vat = pos.vat.Add(entry.VATAmount)
		case enums.LedgerTransactionEscrowRelease:
			pos.released = true
		case enums.LedgerTransactionRefund:
			pos.reversed = true
		}
	}
	return pos, nil
}

// Release moves the vendor's share of a delivered shipment from pending to available.
// It returns nil when there is nothing to release or the funds already moved.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, vendorID, orderID, shipmentID uuid.UUID) (*models.LedgerEntry, error) {
	pos, err := s.position(ctx, tx, vendorID, shipmentID)
	if err != nil {
		return nil, err
	}
	if pos.released || pos.reversed || pos.vendor.IsZero() {
		return nil, nil
	}

	entry, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
		VendorID:      vendorID,
		OrderID:       &orderID,
		ShipmentID:    &shipmentID,
		Type:          enums.LedgerTransactionEscrowRelease,
		BalanceStatus: enums.BalanceStatusAvailable,
		GrossAmount:   pos.gross,
		VendorAmount:  pos.vendor,
		Description:   "funds released",
	})
	if err != nil {
		return nil, err
	}
	err = s.adjust(ctx, tx, vendorID, func(w *models.VendorWallet) {
		w.PendingBalance = w.PendingBalance.Sub(pos.vendor)
		w.AvailableBalance = w.AvailableBalance.Add(pos.vendor)
	})
	if err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEscrowReleased,
		AggregateType: enums.AggregateShipment,
		AggregateID:   shipmentID,
		Data: payloads.EscrowReleasedEvent{
			VendorID:   vendorID,
			OrderID:    orderID,
			ShipmentID: shipmentID,
			Amount:     pos.vendor,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit escrow released event")
	}

	s.metrics.AddLedgerEntries(string(enums.LedgerTransactionEscrowRelease), 1)
	logCtx := s.logg.WithShipmentID(s.logg.WithVendorID(ctx, vendorID.String()), shipmentID.String())
	logCtx = s.logg.WithField(logCtx, "amount", money.String(pos.vendor))
	s.logg.Info(logCtx, "wallet.funds_released")
	return entry, nil
}

// Reverse refunds the vendor's share of a shipment. Released funds are taken from the
// available balance, unreleased ones from pending. The available balance may go negative.
func (s *Service) Reverse(ctx context.Context, tx *gorm.DB, vendorID, orderID, shipmentID uuid.UUID, reason enums.OrderStatus) (*models.LedgerEntry, error) {
	pos, err := s.position(ctx, tx, vendorID, shipmentID)
	if err != nil {
		return nil, err
	}
	if pos.reversed || pos.vendor.IsZero() {
		return nil, nil
	}

	drained := enums.BalanceStatusPending
	if pos.released {
		drained = enums.BalanceStatusAvailable
	}
	entry, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
		VendorID:         vendorID,
		OrderID:          &orderID,
		ShipmentID:       &shipmentID,
		Type:             enums.LedgerTransactionRefund,
		BalanceStatus:    drained,
		GrossAmount:      pos.gross.Neg(),
		VendorAmount:     pos.vendor.Neg(),
		CommissionAmount: pos.commission.Neg(),
		VATAmount:        pos.vat.Neg(),
		Description:      fmt.Sprintf("refund: shipment %s", reason),
	})
	if err != nil {
		return nil, err
	}
	err = s.adjust(ctx, tx, vendorID, func(w *models.VendorWallet) {
		if drained == enums.BalanceStatusAvailable {
			w.AvailableBalance = w.AvailableBalance.Sub(pos.vendor)
		} else {
			w.PendingBalance = w.PendingBalance.Sub(pos.vendor)
		}
		w.LifetimeEarnings = w.LifetimeEarnings.Sub(pos.vendor)
	})
	if err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventFundsReversed,
		AggregateType: enums.AggregateShipment,
		AggregateID:   shipmentID,
		Data: payloads.FundsReversedEvent{
			VendorID:       vendorID,
			OrderID:        orderID,
			ShipmentID:     shipmentID,
			Amount:         pos.vendor,
			DrainedBalance: drained,
			Reason:         reason,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit funds reversed event")
	}

	s.metrics.AddLedgerEntries(string(enums.LedgerTransactionRefund), 1)
	logCtx := s.logg.WithShipmentID(s.logg.WithVendorID(ctx, vendorID.String()), shipmentID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"amount":          money.String(pos.vendor),
		"drained_balance": string(drained),
		"reason":          string(reason),
	})
	s.logg.Info(logCtx, "wallet.funds_reversed")
	return entry, nil
}

func (s *Service) adjust(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, apply func(*models.VendorWallet)) error {
	repo := s.repo.WithTx(tx)
	wallet, err := repo.LockForUpdate(ctx, vendorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor wallet")
	}
	apply(wallet)
	wallet.PendingBalance = money.Round(wallet.PendingBalance)
	wallet.AvailableBalance = money.Round(wallet.AvailableBalance)
	wallet.LifetimeEarnings = money.Round(wallet.LifetimeEarnings)
	if err := repo.SaveBalances(ctx, wallet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor wallet")
	}
	return nil
}

// GetWallet returns the vendor's balances. A vendor without activity has a zero wallet.
func (s *Service) GetWallet(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error) {
	if err := s.requireVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	wallet, err := s.repo.Find(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.VendorWallet{
				VendorID:         vendorID,
				PendingBalance:   money.Zero,
				AvailableBalance: money.Zero,
				LifetimeEarnings: money.Zero,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor wallet")
	}
	return wallet, nil
}

// ListLedger returns one page of the vendor's ledger, newest first.
func (s *Service) ListLedger(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*ledger.Page, error) {
	if err := s.requireVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.ledger.ListByVendor(ctx, vendorID, params)
}

func (s *Service) requireVendor(ctx context.Context, vendorID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	ok, err := s.repo.VendorExists(ctx, vendorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").
			WithDetails(map[string]any{"vendor_id": vendorID.String()})
	}
	return nil
}
