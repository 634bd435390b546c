package orders

import (
	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:     {enums.OrderStatusAccepted, enums.OrderStatusCancelled},
	enums.OrderStatusAccepted:    {enums.OrderStatusReadyToShip, enums.OrderStatusCancelled},
	enums.OrderStatusReadyToShip: {enums.OrderStatusInTransit},
	enums.OrderStatusInTransit:   {enums.OrderStatusDelivered, enums.OrderStatusRejectedShipping},
	enums.OrderStatusDelivered:   {enums.OrderStatusReturned},
}

// CanTransition reports whether from -> to appears in the legal transition table.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition normally follows status.
// Delivered is terminal unless the shipment is later returned.
func IsTerminal(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusDelivered, enums.OrderStatusReturned, enums.OrderStatusCancelled, enums.OrderStatusRejectedShipping:
		return true
	default:
		return false
	}
}

// reversesFunds marks the statuses that refund vendors and restore stock.
func reversesFunds(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusReturned, enums.OrderStatusCancelled, enums.OrderStatusRejectedShipping:
		return true
	default:
		return false
	}
}

func illegalTransition(scope string, from, to enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "illegal %s transition %s -> %s", scope, from, to).
		WithDetails(map[string]any{
			"scope": scope,
			"from":  string(from),
			"to":    string(to),
		})
}
