package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/internal/shipping"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// ShipmentGroup is the set of order items leaving from one pickup location.
type ShipmentGroup struct {
	PickupLocationID uuid.UUID
	Items            []models.OrderItem
}

// ItemCount is the number of units in the group.
func (g ShipmentGroup) ItemCount() int {
	count := 0
	for _, item := range g.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal sums the group's line totals.
func (g ShipmentGroup) Subtotal() decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(g.Items))
	for _, item := range g.Items {
		totals = append(totals, item.TotalPrice)
	}
	return money.Sum(totals...)
}

// Parcel aggregates weight and volume over every unit in the group.
func (g ShipmentGroup) Parcel() shipping.Parcel {
	weight := decimal.Zero
	volume := decimal.Zero
	for _, item := range g.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		weight = weight.Add(item.UnitWeightKg.Mul(qty))
		volume = volume.Add(item.UnitVolumeCm3.Mul(qty))
	}
	return shipping.Parcel{ActualWeightKg: weight, VolumeCm3: volume}
}

// GroupItemsByPickupLocation splits items into one group per pickup location,
// ordered by each location's first appearance.
func GroupItemsByPickupLocation(items []models.OrderItem) []ShipmentGroup {
	index := make(map[uuid.UUID]int)
	var groups []ShipmentGroup
	for _, item := range items {
		pos, ok := index[item.PickupLocationID]
		if !ok {
			pos = len(groups)
			index[item.PickupLocationID] = pos
			groups = append(groups, ShipmentGroup{PickupLocationID: item.PickupLocationID})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups
}

// AllocateDeliveryFee spreads a shipment's delivery fee over its items in proportion to
// line weight, or to quantity when the shipment weighs nothing. Every share but the last
// is truncated to cents and the last item takes the remainder, so the shares sum to fee.
func AllocateDeliveryFee(fee decimal.Decimal, items []models.OrderItem) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(items))
	if len(items) == 0 {
		return shares
	}

	basis := make([]decimal.Decimal, len(items))
	total := decimal.Zero
	for i, item := range items {
		basis[i] = item.UnitWeightKg.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(basis[i])
	}
	if !total.IsPositive() {
		total = decimal.Zero
		for i, item := range items {
			basis[i] = decimal.NewFromInt(int64(item.Quantity))
			total = total.Add(basis[i])
		}
	}

	allocated := decimal.Zero
	last := len(items) - 1
	for i := 0; i < last; i++ {
		shares[i] = fee.Mul(basis[i]).Div(total).Truncate(2)
		allocated = allocated.Add(shares[i])
	}
	shares[last] = money.Round(fee.Sub(allocated))
	return shares
}

// newTrackingNumber renders ARB-YYYYMMDD-XXXXXXXX with eight hex characters of entropy.
func newTrackingNumber(now time.Time) string {
	return fmt.Sprintf("ARB-%s-%s", now.UTC().Format("20060102"), entropy())
}

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), entropy())
}

func entropy() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
