package vendors

import (
	"time"

	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/money"
)

type walletResponse struct {
	VendorID         string                  `json:"vendor_id"`
	PendingBalance   string                  `json:"pending_balance"`
	AvailableBalance string                  `json:"available_balance"`
	LifetimeEarnings string                  `json:"lifetime_earnings"`
	Reconciliation   *reconciliationResponse `json:"reconciliation,omitempty"`
}

type ledgerPageResponse struct {
	Entries    []ledgerEntryResponse `json:"entries"`
	NextCursor *string               `json:"next_cursor,omitempty"`
}

type reconciliationResponse struct {
	ExpectedPending   string `json:"expected_pending"`
	ExpectedAvailable string `json:"expected_available"`
	PendingDrift      string `json:"pending_drift"`
	AvailableDrift    string `json:"available_drift"`
	Balanced          bool   `json:"balanced"`
}

type ledgerEntryResponse struct {
	ID               string    `json:"id"`
	OrderID          *string   `json:"order_id,omitempty"`
	ShipmentID       *string   `json:"shipment_id,omitempty"`
	TransactionType  string    `json:"transaction_type"`
	BalanceStatus    string    `json:"balance_status"`
	GrossAmount      string    `json:"gross_amount"`
	VendorAmount     string    `json:"vendor_amount"`
	CommissionAmount string    `json:"commission_amount"`
	VATAmount        string    `json:"vat_amount"`
	Reference        *string   `json:"reference,omitempty"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"created_at"`
}

type escrowEntryResponse struct {
	ShipmentID   string     `json:"shipment_id"`
	OrderID      string     `json:"order_id"`
	VendorAmount string     `json:"vendor_amount"`
	DeliveredAt  time.Time  `json:"delivered_at"`
	ReleaseDate  time.Time  `json:"release_date"`
	IsReleasable bool       `json:"is_releasable"`
	MaturedAt    *time.Time `json:"matured_at,omitempty"`
}

type payoutResponse struct {
	Entry  ledgerEntryResponse `json:"entry"`
	Wallet walletResponse      `json:"wallet"`
}

func newWalletResponse(w *models.VendorWallet) walletResponse {
	return walletResponse{
		VendorID:         w.VendorID.String(),
		PendingBalance:   money.String(w.PendingBalance),
		AvailableBalance: money.String(w.AvailableBalance),
		LifetimeEarnings: money.String(w.LifetimeEarnings),
	}
}

func newReconciliationResponse(rec *wallet.Reconciliation) *reconciliationResponse {
	return &reconciliationResponse{
		ExpectedPending:   money.String(rec.ExpectedPending),
		ExpectedAvailable: money.String(rec.ExpectedAvailable),
		PendingDrift:      money.String(rec.PendingDrift),
		AvailableDrift:    money.String(rec.AvailableDrift),
		Balanced:          rec.Balanced,
	}
}

func newLedgerEntryResponse(entry models.LedgerEntry) ledgerEntryResponse {
	resp := ledgerEntryResponse{
		ID:               entry.ID.String(),
		TransactionType:  string(entry.TransactionType),
		BalanceStatus:    string(entry.BalanceStatus),
		GrossAmount:      money.String(entry.GrossAmount),
		VendorAmount:     money.String(entry.VendorAmount),
		CommissionAmount: money.String(entry.CommissionAmount),
		VATAmount:        money.String(entry.VATAmount),
		Reference:        entry.Reference,
		Description:      entry.Description,
		CreatedAt:        entry.CreatedAt,
	}
	if entry.OrderID != nil {
		id := entry.OrderID.String()
		resp.OrderID = &id
	}
	if entry.ShipmentID != nil {
		id := entry.ShipmentID.String()
		resp.ShipmentID = &id
	}
	return resp
}
