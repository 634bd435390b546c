package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateShipment OutboxAggregateType = "shipment"
	AggregateVendor   OutboxAggregateType = "vendor"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateShipment,
	AggregateVendor,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced           OutboxEventType = "order_placed"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventShipmentStatusChanged OutboxEventType = "shipment_status_changed"
	EventEscrowReleased        OutboxEventType = "escrow_released"
	EventFundsReversed         OutboxEventType = "funds_reversed"
	EventEscrowMatured         OutboxEventType = "escrow_matured"
	EventPayoutRecorded        OutboxEventType = "payout_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventShipmentStatusChanged,
	EventEscrowReleased,
	EventFundsReversed,
	EventEscrowMatured,
	EventPayoutRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// MovesFunds reports whether the event records a wallet balance change. Losing one of
// these leaves downstream reconciliation out of step with the ledger.
func (e OutboxEventType) MovesFunds() bool {
	switch e {
	case EventEscrowReleased, EventFundsReversed, EventPayoutRecorded:
		return true
	default:
		return false
	}
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
