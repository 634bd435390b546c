package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/money"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

// Counter names, relative to the redis counter namespace. Money counters hold piasters.
const (
	counterOrders   = "orders"
	counterSales    = "sales_minor"
	counterReleased = "released_minor"
	counterReversed = "reversed_minor"
	counterPayouts  = "payouts_minor"
	counterMatured  = "matured_shipments"

	counterPlatformGMV      = "gmv_minor"
	counterPlatformDelivery = "delivery_fees_minor"
)

type counterStore interface {
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	CounterKey(name string) string
}

// Projector folds domain events into per-vendor and platform counters.
type Projector struct {
	store counterStore
}

func NewProjector(store counterStore) (*Projector, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store required")
	}
	return &Projector{store: store}, nil
}

// Apply updates the counters for one decoded event. Unknown payloads are ignored.
func (p *Projector) Apply(ctx context.Context, payload any) error {
	switch event := payload.(type) {
	case *payloads.OrderPlacedEvent:
		return p.orderPlaced(ctx, event)
	case *payloads.EscrowReleasedEvent:
		return p.add(ctx, vendorKey(event.VendorID, counterReleased), money.ToMinor(event.Amount))
	case *payloads.FundsReversedEvent:
		return p.add(ctx, vendorKey(event.VendorID, counterReversed), money.ToMinor(event.Amount))
	case *payloads.PayoutRecordedEvent:
		return p.add(ctx, vendorKey(event.VendorID, counterPayouts), money.ToMinor(event.Amount))
	case *payloads.EscrowMaturedEvent:
		for _, vendorID := range event.VendorIDs {
			if err := p.add(ctx, vendorKey(vendorID, counterMatured), 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (p *Projector) orderPlaced(ctx context.Context, event *payloads.OrderPlacedEvent) error {
	if err := p.add(ctx, platformKey(counterOrders), 1); err != nil {
		return err
	}
	if err := p.add(ctx, platformKey(counterPlatformGMV), money.ToMinor(event.Total)); err != nil {
		return err
	}
	if err := p.add(ctx, platformKey(counterPlatformDelivery), money.ToMinor(event.DeliveryFee)); err != nil {
		return err
	}
	for _, payout := range event.VendorPayouts {
		if err := p.add(ctx, vendorKey(payout.VendorID, counterOrders), 1); err != nil {
			return err
		}
		if err := p.add(ctx, vendorKey(payout.VendorID, counterSales), money.ToMinor(payout.Amount)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) add(ctx context.Context, name string, delta int64) error {
	if delta == 0 {
		return nil
	}
	if _, err := p.store.IncrBy(ctx, p.store.CounterKey(name), delta); err != nil {
		return fmt.Errorf("increment %s: %w", name, err)
	}
	return nil
}

// VendorSnapshot is the projected activity of one vendor.
type VendorSnapshot struct {
	VendorID         uuid.UUID
	Orders           int64
	Sales            decimal.Decimal
	Released         decimal.Decimal
	Reversed         decimal.Decimal
	Payouts          decimal.Decimal
	MaturedShipments int64
}

// PlatformSnapshot is the projected activity across all vendors.
type PlatformSnapshot struct {
	Orders       int64
	GMV          decimal.Decimal
	DeliveryFees decimal.Decimal
}

func (p *Projector) Vendor(ctx context.Context, vendorID uuid.UUID) (VendorSnapshot, error) {
	snapshot := VendorSnapshot{VendorID: vendorID}
	reads := []struct {
		name string
		dst  *int64
	}{
		{counterOrders, &snapshot.Orders},
		{counterMatured, &snapshot.MaturedShipments},
	}
	for _, read := range reads {
		value, err := p.read(ctx, vendorKey(vendorID, read.name))
		if err != nil {
			return VendorSnapshot{}, err
		}
		*read.dst = value
	}
	amounts := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{counterSales, &snapshot.Sales},
		{counterReleased, &snapshot.Released},
		{counterReversed, &snapshot.Reversed},
		{counterPayouts, &snapshot.Payouts},
	}
	for _, amount := range amounts {
		value, err := p.read(ctx, vendorKey(vendorID, amount.name))
		if err != nil {
			return VendorSnapshot{}, err
		}
		*amount.dst = money.FromMinor(value)
	}
	return snapshot, nil
}

func (p *Projector) Platform(ctx context.Context) (PlatformSnapshot, error) {
	orders, err := p.read(ctx, platformKey(counterOrders))
	if err != nil {
		return PlatformSnapshot{}, err
	}
	gmv, err := p.read(ctx, platformKey(counterPlatformGMV))
	if err != nil {
		return PlatformSnapshot{}, err
	}
	delivery, err := p.read(ctx, platformKey(counterPlatformDelivery))
	if err != nil {
		return PlatformSnapshot{}, err
	}
	return PlatformSnapshot{
		Orders:       orders,
		GMV:          money.FromMinor(gmv),
		DeliveryFees: money.FromMinor(delivery),
	}, nil
}

func (p *Projector) read(ctx context.Context, name string) (int64, error) {
	raw, err := p.store.Get(ctx, p.store.CounterKey(name))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}

func vendorKey(vendorID uuid.UUID, name string) string {
	return "dashboard:vendor:" + vendorID.String() + ":" + name
}

func platformKey(name string) string {
	return "dashboard:platform:" + name
}
