package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

func (h *harness) moveShipment(t *testing.T, shipmentID uuid.UUID, path ...enums.OrderStatus) *StatusUpdateResult {
	t.Helper()
	var result *StatusUpdateResult
	for _, next := range path {
		var err error
		result, err = h.status.UpdateShipmentStatus(context.Background(), shipmentID, next, "")
		require.NoError(t, err, "shipment -> %s", next)
	}
	return result
}

func (h *harness) moveOrder(t *testing.T, orderID uuid.UUID, path ...enums.OrderStatus) *StatusUpdateResult {
	t.Helper()
	var result *StatusUpdateResult
	for _, next := range path {
		var err error
		result, err = h.status.UpdateOrderStatus(context.Background(), orderID, next, "")
		require.NoError(t, err, "order -> %s", next)
	}
	return result
}

func (h *harness) orderRow(t *testing.T, orderID uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, h.conn.First(&order, "id = ?", orderID).Error)
	return order
}

func (h *harness) shipmentRow(t *testing.T, shipmentID uuid.UUID) models.Shipment {
	t.Helper()
	var shipment models.Shipment
	require.NoError(t, h.conn.First(&shipment, "id = ?", shipmentID).Error)
	return shipment
}

var toInTransit = []enums.OrderStatus{
	enums.OrderStatusAccepted,
	enums.OrderStatusReadyToShip,
	enums.OrderStatusInTransit,
}

func TestCancelPendingOrderRoundTripsWalletAndStock(t *testing.T) {
	h := newHarness(t)
	before := [2]int{h.stock(t, h.basket.ID), h.stock(t, h.rug.ID)}
	result := h.placeTwoShipmentOrder(t)

	update, err := h.status.UpdateOrderStatus(context.Background(), result.Order.ID, enums.OrderStatusCancelled, "customer request")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, update.PreviousStatus)
	require.Equal(t, enums.OrderStatusCancelled, update.OrderStatus)
	require.Len(t, update.LedgerEntries, 2)
	for _, entry := range update.LedgerEntries {
		require.Equal(t, enums.LedgerTransactionRefund, entry.TransactionType)
		require.Equal(t, enums.BalanceStatusPending, entry.BalanceStatus)
		require.True(t, entry.VendorAmount.IsNegative())
	}

	h.requireWallet(t, h.vendorA.ID, "0", "0", "0")
	h.requireWallet(t, h.vendorB.ID, "0", "0", "0")
	require.Equal(t, before, [2]int{h.stock(t, h.basket.ID), h.stock(t, h.rug.ID)})

	order := h.orderRow(t, result.Order.ID)
	require.Equal(t, enums.OrderStatusCancelled, order.Status)
	require.NotNil(t, order.CancelledAt)
	for _, shipment := range result.Shipments {
		require.Equal(t, enums.OrderStatusCancelled, h.shipmentRow(t, shipment.ID).Status)
	}
	require.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))
	require.EqualValues(t, 2, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventShipmentStatusChanged))

	_, err = h.status.UpdateOrderStatus(context.Background(), result.Order.ID, enums.OrderStatusCancelled, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestDeliveringOneShipmentReleasesOnlyItsVendors(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	basketShipment := shipmentFor(t, result, h.workshop.ID)
	rugShipment := shipmentFor(t, result, h.store.ID)

	h.moveShipment(t, basketShipment.ID, toInTransit...)
	update := h.moveShipment(t, basketShipment.ID, enums.OrderStatusDelivered)
	require.Equal(t, enums.OrderStatusInTransit, update.PreviousStatus)
	require.Equal(t, enums.OrderStatusPending, update.OrderStatus, "order waits for every shipment")
	require.Len(t, update.LedgerEntries, 1)
	require.Equal(t, enums.LedgerTransactionEscrowRelease, update.LedgerEntries[0].TransactionType)
	require.Equal(t, "funds released", update.LedgerEntries[0].Description)

	h.requireWallet(t, h.vendorA.ID, "0", "530", "530")
	h.requireWallet(t, h.vendorB.ID, "1060", "0", "1060")
	require.NotNil(t, h.shipmentRow(t, basketShipment.ID).DeliveredAt)
	require.Equal(t, enums.OrderStatusPending, h.orderRow(t, result.Order.ID).Status)

	h.moveShipment(t, rugShipment.ID, toInTransit...)
	update = h.moveShipment(t, rugShipment.ID, enums.OrderStatusDelivered)
	require.Equal(t, enums.OrderStatusDelivered, update.OrderStatus)

	order := h.orderRow(t, result.Order.ID)
	require.Equal(t, enums.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)
	h.requireWallet(t, h.vendorB.ID, "0", "1060", "1060")
}

func TestShipmentUpdatesDeriveOrderStatus(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)

	for _, shipment := range result.Shipments {
		h.moveShipment(t, shipment.ID, enums.OrderStatusAccepted)
	}
	require.Equal(t, enums.OrderStatusAccepted, h.orderRow(t, result.Order.ID).Status)
	require.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))
}

func TestIllegalTransitionsHaveNoSideEffects(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	basketShipment := shipmentFor(t, result, h.workshop.ID)
	eventsBefore := h.count(t, &models.OutboxEvent{}, "")
	entriesBefore := h.count(t, &models.LedgerEntry{}, "")

	_, err := h.status.UpdateOrderStatus(context.Background(), result.Order.ID, enums.OrderStatusDelivered, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = h.status.UpdateShipmentStatus(context.Background(), basketShipment.ID, enums.OrderStatusDelivered, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = h.status.UpdateShipmentStatus(context.Background(), basketShipment.ID, enums.OrderStatusCancelled, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	require.Equal(t, enums.OrderStatusPending, h.orderRow(t, result.Order.ID).Status)
	require.Equal(t, enums.OrderStatusPending, h.shipmentRow(t, basketShipment.ID).Status)
	require.Equal(t, eventsBefore, h.count(t, &models.OutboxEvent{}, ""))
	require.Equal(t, entriesBefore, h.count(t, &models.LedgerEntry{}, ""))
	h.requireWallet(t, h.vendorA.ID, "530", "0", "530")
	require.Equal(t, 9, h.stock(t, h.basket.ID))
}

func TestOrderUpdateRejectedWholesaleWhenAShipmentCannotFollow(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	basketShipment := shipmentFor(t, result, h.workshop.ID)
	rugShipment := shipmentFor(t, result, h.store.ID)

	h.moveOrder(t, result.Order.ID, enums.OrderStatusAccepted)
	h.moveShipment(t, basketShipment.ID, enums.OrderStatusReadyToShip, enums.OrderStatusInTransit)

	_, err := h.status.UpdateOrderStatus(context.Background(), result.Order.ID, enums.OrderStatusCancelled, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, basketShipment.ID.String(), details["shipment_id"])

	require.Equal(t, enums.OrderStatusAccepted, h.shipmentRow(t, rugShipment.ID).Status)
	h.requireWallet(t, h.vendorB.ID, "1060", "0", "1060")
	require.Equal(t, 8, h.stock(t, h.rug.ID))
}

func TestReturnAfterDeliveryDrainsAvailableAndRestocks(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)

	h.moveOrder(t, result.Order.ID, append(toInTransit, enums.OrderStatusDelivered)...)
	h.requireWallet(t, h.vendorA.ID, "0", "530", "530")
	h.requireWallet(t, h.vendorB.ID, "0", "1060", "1060")

	update := h.moveOrder(t, result.Order.ID, enums.OrderStatusReturned)
	require.Equal(t, enums.OrderStatusDelivered, update.PreviousStatus)
	require.Len(t, update.LedgerEntries, 2)
	for _, entry := range update.LedgerEntries {
		require.Equal(t, enums.BalanceStatusAvailable, entry.BalanceStatus)
	}
	h.requireWallet(t, h.vendorA.ID, "0", "0", "0")
	h.requireWallet(t, h.vendorB.ID, "0", "0", "0")
	require.Equal(t, 10, h.stock(t, h.basket.ID))
	require.Equal(t, 10, h.stock(t, h.rug.ID))

	order := h.orderRow(t, result.Order.ID)
	require.Equal(t, enums.OrderStatusReturned, order.Status)
	require.NotNil(t, order.ReturnedAt)
}

func TestMixedShipmentOutcomesSettleTheOrder(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	basketShipment := shipmentFor(t, result, h.workshop.ID)
	rugShipment := shipmentFor(t, result, h.store.ID)

	h.moveOrder(t, result.Order.ID, toInTransit...)
	update := h.moveShipment(t, basketShipment.ID, enums.OrderStatusDelivered, enums.OrderStatusReturned)
	require.Equal(t, enums.OrderStatusInTransit, update.OrderStatus, "rug still in transit")
	h.requireWallet(t, h.vendorA.ID, "0", "0", "0")

	update = h.moveShipment(t, rugShipment.ID, enums.OrderStatusDelivered)
	require.Equal(t, enums.OrderStatusDelivered, update.OrderStatus)
	order := h.orderRow(t, result.Order.ID)
	require.Equal(t, enums.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)
	h.requireWallet(t, h.vendorB.ID, "0", "1060", "1060")

	update = h.moveOrder(t, result.Order.ID, enums.OrderStatusReturned)
	require.Len(t, update.LedgerEntries, 1, "only the rug shipment still had funds")
	order = h.orderRow(t, result.Order.ID)
	require.Equal(t, enums.OrderStatusReturned, order.Status)
	require.NotNil(t, order.ReturnedAt)
	h.requireWallet(t, h.vendorB.ID, "0", "0", "0")
	require.Equal(t, 10, h.stock(t, h.basket.ID))
	require.Equal(t, 10, h.stock(t, h.rug.ID))
}

func TestRejectedBesideDeliveredShipmentDeliversOrder(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	basketShipment := shipmentFor(t, result, h.workshop.ID)
	rugShipment := shipmentFor(t, result, h.store.ID)

	h.moveOrder(t, result.Order.ID, toInTransit...)
	h.moveShipment(t, basketShipment.ID, enums.OrderStatusDelivered)
	update := h.moveShipment(t, rugShipment.ID, enums.OrderStatusRejectedShipping)
	require.Equal(t, enums.OrderStatusDelivered, update.OrderStatus)
	require.Equal(t, enums.OrderStatusDelivered, h.orderRow(t, result.Order.ID).Status)
	h.requireWallet(t, h.vendorA.ID, "0", "530", "530")
	h.requireWallet(t, h.vendorB.ID, "0", "0", "0")

	update = h.moveShipment(t, basketShipment.ID, enums.OrderStatusReturned)
	require.Equal(t, enums.OrderStatusReturned, update.OrderStatus)
	require.Equal(t, enums.OrderStatusReturned, h.orderRow(t, result.Order.ID).Status)
	h.requireWallet(t, h.vendorA.ID, "0", "0", "0")
}

func TestRejectedShippingReversesOnlyThatShipment(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	rugShipment := shipmentFor(t, result, h.store.ID)

	h.moveShipment(t, rugShipment.ID, toInTransit...)
	update := h.moveShipment(t, rugShipment.ID, enums.OrderStatusRejectedShipping)
	require.Len(t, update.LedgerEntries, 1)
	require.Equal(t, h.vendorB.ID, update.LedgerEntries[0].VendorID)

	h.requireWallet(t, h.vendorB.ID, "0", "0", "0")
	h.requireWallet(t, h.vendorA.ID, "530", "0", "530")
	require.Equal(t, 10, h.stock(t, h.rug.ID))
	require.Equal(t, 9, h.stock(t, h.basket.ID))
}

func TestStatusUpdateErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.status.UpdateOrderStatus(ctx, uuid.Nil, enums.OrderStatusAccepted, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = h.status.UpdateOrderStatus(ctx, uuid.New(), "shipped", "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = h.status.UpdateOrderStatus(ctx, uuid.New(), enums.OrderStatusPending, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = h.status.UpdateOrderStatus(ctx, uuid.New(), enums.OrderStatusAccepted, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	_, err = h.status.UpdateShipmentStatus(ctx, uuid.New(), enums.OrderStatusAccepted, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestStatusTransitionMetrics(t *testing.T) {
	h := newHarness(t)
	result := h.placeTwoShipmentOrder(t)
	h.moveOrder(t, result.Order.ID, enums.OrderStatusAccepted)

	require.Equal(t, 3.0, counterValue(t, h.reg, "arooba_order_status_transitions_total", "status", "accepted"))
	require.Equal(t, 2.0, counterValue(t, h.reg, "arooba_order_status_transitions_total", "scope", "shipment"))
}
