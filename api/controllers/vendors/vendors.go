package vendors

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arooba/marketplace-backend/api/responses"
	"github.com/arooba/marketplace-backend/api/validators"
	"github.com/arooba/marketplace-backend/internal/ledger"
	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/pagination"
)

const maxReferenceLength = 128

// WalletService is the vendor money surface; satisfied by *wallet.Service.
type WalletService interface {
	GetWallet(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error)
	Reconcile(ctx context.Context, vendorID uuid.UUID) (*wallet.Reconciliation, error)
	ListLedger(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*ledger.Page, error)
	ListEscrow(ctx context.Context, vendorID uuid.UUID, now time.Time) ([]wallet.EscrowEntry, error)
	RequestPayout(ctx context.Context, input wallet.PayoutInput) (*wallet.PayoutResult, error)
}

type payoutRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Reference string `json:"reference" validate:"max=128"`
}

// Wallet returns the vendor's balances together with a ledger reconciliation.
func Wallet(svc WalletService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := vendorFromPath(w, r, svc, logg)
		if !ok {
			return
		}
		current, err := svc.GetWallet(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec, err := svc.Reconcile(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := newWalletResponse(current)
		resp.Reconciliation = newReconciliationResponse(rec)
		responses.WriteSuccess(w, resp)
	}
}

// Ledger pages through the vendor's ledger, newest first.
func Ledger(svc WalletService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := vendorFromPath(w, r, svc, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListLedger(r.Context(), vendorID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := ledgerPageResponse{Entries: make([]ledgerEntryResponse, 0, len(page.Entries))}
		for _, entry := range page.Entries {
			out.Entries = append(out.Entries, newLedgerEntryResponse(entry))
		}
		if page.NextCursor != "" {
			out.NextCursor = &page.NextCursor
		}
		responses.WriteSuccess(w, out)
	}
}

// Escrow lists delivered shipments with their release dates.
func Escrow(svc WalletService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := vendorFromPath(w, r, svc, logg)
		if !ok {
			return
		}
		entries, err := svc.ListEscrow(r.Context(), vendorID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]escrowEntryResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, escrowEntryResponse{
				ShipmentID:   entry.ShipmentID.String(),
				OrderID:      entry.OrderID.String(),
				VendorAmount: money.String(entry.VendorAmount),
				DeliveredAt:  entry.DeliveredAt,
				ReleaseDate:  entry.ReleaseDate,
				IsReleasable: entry.IsReleasable,
				MaturedAt:    entry.MaturedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// Payout withdraws from the vendor's available balance.
func Payout(svc WalletService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := vendorFromPath(w, r, svc, logg)
		if !ok {
			return
		}
		var payload payoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := validators.ParseMoney("amount", payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RequestPayout(r.Context(), wallet.PayoutInput{
			VendorID:  vendorID,
			Amount:    amount,
			Reference: validators.SanitizeString(payload.Reference, maxReferenceLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payoutResponse{
			Entry:  newLedgerEntryResponse(*result.Entry),
			Wallet: newWalletResponse(result.Wallet),
		})
	}
}

func vendorFromPath(w http.ResponseWriter, r *http.Request, svc WalletService, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
		return uuid.Nil, false
	}
	vendorID, err := validators.ParseUUIDParam(r, "vendorId", "vendor id")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return vendorID, true
}
