package enums

import "fmt"

// OrderStatus maps to the order_status_enum enum in Postgres. Orders and
// shipments share the same lifecycle.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusAccepted         OrderStatus = "accepted"
	OrderStatusReadyToShip      OrderStatus = "ready_to_ship"
	OrderStatusInTransit        OrderStatus = "in_transit"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusReturned         OrderStatus = "returned"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusRejectedShipping OrderStatus = "rejected_shipping"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusReadyToShip,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusReturned,
	OrderStatusCancelled,
	OrderStatusRejectedShipping,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
