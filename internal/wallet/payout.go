package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/internal/ledger"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

// PayoutInput is a vendor withdrawal request.
type PayoutInput struct {
	VendorID  uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

// PayoutResult is the payout ledger entry and the wallet after the debit.
type PayoutResult struct {
	Entry  *models.LedgerEntry
	Wallet *models.VendorWallet
}

// RequestPayout debits available funds. Pending funds can never be withdrawn.
func (s *Service) RequestPayout(ctx context.Context, input PayoutInput) (*PayoutResult, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be greater than zero")
	}
	if !input.Amount.Equal(money.Round(input.Amount)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must have at most two decimal places")
	}

	var result PayoutResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.VendorExists(ctx, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").
				WithDetails(map[string]any{"vendor_id": input.VendorID.String()})
		}

		wallet, err := repo.LockForUpdate(ctx, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor wallet")
		}
		if input.Amount.GreaterThan(wallet.AvailableBalance) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "payout exceeds available balance").
				WithDetails(map[string]any{
					"vendor_id": input.VendorID.String(),
					"requested": money.String(input.Amount),
					"available": money.String(wallet.AvailableBalance),
				})
		}

		entry, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			VendorID:      input.VendorID,
			Type:          enums.LedgerTransactionPayout,
			BalanceStatus: enums.BalanceStatusAvailable,
			GrossAmount:   input.Amount.Neg(),
			VendorAmount:  input.Amount.Neg(),
			Reference:     input.Reference,
			Description:   "payout",
		})
		if err != nil {
			return err
		}

		wallet.AvailableBalance = money.Round(wallet.AvailableBalance.Sub(input.Amount))
		if err := repo.SaveBalances(ctx, wallet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor wallet")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRecorded,
			AggregateType: enums.AggregateVendor,
			AggregateID:   input.VendorID,
			Data: payloads.PayoutRecordedEvent{
				VendorID:         input.VendorID,
				Amount:           input.Amount,
				Reference:        input.Reference,
				AvailableBalance: wallet.AvailableBalance,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payout event")
		}

		result = PayoutResult{Entry: entry, Wallet: wallet}
		return nil
	})
	if err != nil {
		var typed *pkgerrors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout")
	}

	s.metrics.AddLedgerEntries(string(enums.LedgerTransactionPayout), 1)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"vendor_id": input.VendorID.String(),
		"amount":    money.String(input.Amount),
	})
	s.logg.Info(logCtx, "wallet.payout_recorded")
	return &result, nil
}
