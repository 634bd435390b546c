package orders

import (
	"github.com/google/uuid"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
)

// CreateOrderInput is a customer checkout request.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	Items           []ItemInput
	DeliveryAddress string
	DeliveryZoneID  uuid.UUID
	PaymentMethod   enums.PaymentMethod
}

// ItemInput requests qty units of one product.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderResult is the committed order with everything created alongside it.
type OrderResult struct {
	Order         *models.Order
	Items         []models.OrderItem
	Shipments     []models.Shipment
	Splits        []models.TransactionSplit
	LedgerEntries []models.LedgerEntry
}

// StatusUpdateResult reports one applied transition and the ledger entries it produced.
// ShipmentID is nil for order-level updates.
type StatusUpdateResult struct {
	OrderID        uuid.UUID
	ShipmentID     *uuid.UUID
	PreviousStatus enums.OrderStatus
	NewStatus      enums.OrderStatus
	OrderStatus    enums.OrderStatus
	LedgerEntries  []models.LedgerEntry
}
