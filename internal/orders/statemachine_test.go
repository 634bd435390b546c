package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
)

func TestCanTransitionTable(t *testing.T) {
	pairs := [][2]enums.OrderStatus{
		{enums.OrderStatusPending, enums.OrderStatusAccepted},
		{enums.OrderStatusPending, enums.OrderStatusCancelled},
		{enums.OrderStatusAccepted, enums.OrderStatusReadyToShip},
		{enums.OrderStatusAccepted, enums.OrderStatusCancelled},
		{enums.OrderStatusReadyToShip, enums.OrderStatusInTransit},
		{enums.OrderStatusInTransit, enums.OrderStatusDelivered},
		{enums.OrderStatusInTransit, enums.OrderStatusRejectedShipping},
		{enums.OrderStatusDelivered, enums.OrderStatusReturned},
	}
	legal := make(map[[2]enums.OrderStatus]bool, len(pairs))
	for _, pair := range pairs {
		legal[pair] = true
	}
	all := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusAccepted,
		enums.OrderStatusReadyToShip,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
		enums.OrderStatusReturned,
		enums.OrderStatusCancelled,
		enums.OrderStatusRejectedShipping,
	}
	for _, from := range all {
		for _, to := range all {
			want := legal[[2]enums.OrderStatus{from, to}]
			require.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	require.False(t, IsTerminal(enums.OrderStatusPending))
	require.False(t, IsTerminal(enums.OrderStatusInTransit))
	require.True(t, IsTerminal(enums.OrderStatusDelivered))
	require.True(t, IsTerminal(enums.OrderStatusCancelled))
	require.True(t, IsTerminal(enums.OrderStatusRejectedShipping))
	require.True(t, IsTerminal(enums.OrderStatusReturned))
}

func TestDeriveOrderStatus(t *testing.T) {
	const (
		pending   = enums.OrderStatusPending
		transit   = enums.OrderStatusInTransit
		delivered = enums.OrderStatusDelivered
		returned  = enums.OrderStatusReturned
		rejected  = enums.OrderStatusRejectedShipping
	)
	tests := []struct {
		name    string
		current enums.OrderStatus
		others  []enums.OrderStatus
		next    enums.OrderStatus
		want    enums.OrderStatus
	}{
		{name: "single shipment", current: transit, next: delivered, want: delivered},
		{name: "all shipments agree", current: pending, others: []enums.OrderStatus{enums.OrderStatusAccepted}, next: enums.OrderStatusAccepted, want: enums.OrderStatusAccepted},
		{name: "one still moving", current: transit, others: []enums.OrderStatus{transit}, next: delivered, want: transit},
		{name: "delivered beside returned", current: transit, others: []enums.OrderStatus{returned}, next: delivered, want: delivered},
		{name: "delivered beside rejected", current: transit, others: []enums.OrderStatus{delivered}, next: rejected, want: delivered},
		{name: "partial return keeps delivered", current: delivered, others: []enums.OrderStatus{delivered}, next: returned, want: delivered},
		{name: "returns and rejections", current: delivered, others: []enums.OrderStatus{rejected}, next: returned, want: returned},
		{name: "every shipment returned", current: delivered, others: []enums.OrderStatus{returned}, next: returned, want: returned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved := models.Shipment{ID: uuid.New(), Status: transit}
			shipments := []models.Shipment{moved}
			for _, status := range tt.others {
				shipments = append(shipments, models.Shipment{ID: uuid.New(), Status: status})
			}
			require.Equal(t, tt.want, deriveOrderStatus(tt.current, shipments, moved.ID, tt.next))
		})
	}
}
