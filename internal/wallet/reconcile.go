package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// Reconciliation compares stored balances with the balances implied by the ledger.
type Reconciliation struct {
	VendorID          uuid.UUID
	PendingBalance    decimal.Decimal
	AvailableBalance  decimal.Decimal
	ExpectedPending   decimal.Decimal
	ExpectedAvailable decimal.Decimal
	PendingDrift      decimal.Decimal
	AvailableDrift    decimal.Decimal
	Balanced          bool
}

// Reconcile replays the vendor's ledger totals. Sales land in pending, releases move
// pending to available, refunds drain the balance they are tagged with and payouts
// drain available.
func (s *Service) Reconcile(ctx context.Context, vendorID uuid.UUID) (*Reconciliation, error) {
	wallet, err := s.GetWallet(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	totals, err := s.ledger.TotalsByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	pending, available := money.Zero, money.Zero
	for _, total := range totals {
		switch total.TransactionType {
		case enums.LedgerTransactionSale:
			pending = pending.Add(total.VendorAmount)
		case enums.LedgerTransactionEscrowRelease:
			pending = pending.Sub(total.VendorAmount)
			available = available.Add(total.VendorAmount)
		case enums.LedgerTransactionRefund:
			if total.BalanceStatus == enums.BalanceStatusAvailable {
				available = available.Add(total.VendorAmount)
			} else {
				pending = pending.Add(total.VendorAmount)
			}
		case enums.LedgerTransactionPayout:
			available = available.Add(total.VendorAmount)
		}
	}

	rec := &Reconciliation{
		VendorID:          vendorID,
		PendingBalance:    wallet.PendingBalance,
		AvailableBalance:  wallet.AvailableBalance,
		ExpectedPending:   money.Round(pending),
		ExpectedAvailable: money.Round(available),
	}
	rec.PendingDrift = rec.PendingBalance.Sub(rec.ExpectedPending)
	rec.AvailableDrift = rec.AvailableBalance.Sub(rec.ExpectedAvailable)
	rec.Balanced = rec.PendingDrift.IsZero() && rec.AvailableDrift.IsZero()
	if !rec.Balanced {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id":       vendorID.String(),
			"pending_drift":   money.String(rec.PendingDrift),
			"available_drift": money.String(rec.AvailableDrift),
		})
		s.logg.Warn(logCtx, "wallet.reconciliation_drift")
	}
	return rec, nil
}
