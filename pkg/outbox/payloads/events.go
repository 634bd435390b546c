package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/enums"
)

// VendorAmount is a per-vendor money figure carried by order events.
type VendorAmount struct {
	VendorID uuid.UUID       `json:"vendor_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// OrderPlacedEvent is emitted once an order, its shipments and pending ledger entries commit.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	Total         decimal.Decimal     `json:"total"`
	ShipmentIDs   []uuid.UUID         `json:"shipment_ids"`
	VendorPayouts []VendorAmount      `json:"vendor_payouts"`
}

// StatusChangedEvent covers both order-level and shipment-level transitions.
type StatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	ShipmentID     *uuid.UUID        `json:"shipment_id,omitempty"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	OrderStatus    enums.OrderStatus `json:"order_status"`
	Reason         string            `json:"reason,omitempty"`
}

// EscrowReleasedEvent reports funds moved from pending to available for one vendor.
type EscrowReleasedEvent struct {
	VendorID   uuid.UUID       `json:"vendor_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	ShipmentID uuid.UUID       `json:"shipment_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// FundsReversedEvent reports a refund drained from the vendor's pending or available balance.
type FundsReversedEvent struct {
	VendorID       uuid.UUID           `json:"vendor_id"`
	OrderID        uuid.UUID           `json:"order_id"`
	ShipmentID     uuid.UUID           `json:"shipment_id"`
	Amount         decimal.Decimal     `json:"amount"`
	DrainedBalance enums.BalanceStatus `json:"drained_balance"`
	Reason         enums.OrderStatus   `json:"reason"`
}

// EscrowMaturedEvent marks a delivered shipment whose hold period has elapsed.
type EscrowMaturedEvent struct {
	ShipmentID  uuid.UUID   `json:"shipment_id"`
	OrderID     uuid.UUID   `json:"order_id"`
	VendorIDs   []uuid.UUID `json:"vendor_ids"`
	DeliveredAt time.Time   `json:"delivered_at"`
	ReleaseDate time.Time   `json:"release_date"`
}

// PayoutRecordedEvent is emitted after a withdrawal debits the available balance.
type PayoutRecordedEvent struct {
	VendorID         uuid.UUID       `json:"vendor_id"`
	Amount           decimal.Decimal `json:"amount"`
	Reference        string          `json:"reference,omitempty"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}
