package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// RateCard is the base and per-kg pricing for one zone pair.
type RateCard struct {
	ID         uuid.UUID
	FromZoneID uuid.UUID
	ToZoneID   uuid.UUID
	BaseRate   decimal.Decimal
	PerKgRate  decimal.Decimal
}

// FeeInput describes a single box travelling between two zones.
type FeeInput struct {
	ActualWeightKg decimal.Decimal
	LengthCm       decimal.Decimal
	WidthCm        decimal.Decimal
	HeightCm       decimal.Decimal
	FromZoneID     uuid.UUID
	ToZoneID       uuid.UUID
}

// Parcel is an already-aggregated shipment: summed weight and summed volume of its items.
type Parcel struct {
	ActualWeightKg decimal.Decimal
	VolumeCm3      decimal.Decimal
}

// ShippingFeeResult is the fee breakdown. SubsidyAmount is platform cost.
type ShippingFeeResult struct {
	FromZoneID       uuid.UUID
	ToZoneID         uuid.UUID
	ActualWeight     decimal.Decimal
	VolumetricWeight decimal.Decimal
	ChargeableWeight decimal.Decimal
	BaseFee          decimal.Decimal
	ExcessWeightFee  decimal.Decimal
	TotalFee         decimal.Decimal
	SubsidizedFee    decimal.Decimal
	SubsidyAmount    decimal.Decimal
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

func (c *Calculator) Policy() Policy {
	return c.policy
}

// CalculateShippingFee prices one box using its outer dimensions.
func (c *Calculator) CalculateShippingFee(input FeeInput, card RateCard) (ShippingFeeResult, error) {
	for name, value := range map[string]decimal.Decimal{
		"length_cm": input.LengthCm,
		"width_cm":  input.WidthCm,
		"height_cm": input.HeightCm,
	} {
		if value.IsNegative() {
			return ShippingFeeResult{}, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must not be negative", name)
		}
	}
	volume := input.LengthCm.Mul(input.WidthCm).Mul(input.HeightCm)
	result, err := c.CalculateForParcel(Parcel{ActualWeightKg: input.ActualWeightKg, VolumeCm3: volume}, card)
	if err != nil {
		return ShippingFeeResult{}, err
	}
	result.FromZoneID = input.FromZoneID
	result.ToZoneID = input.ToZoneID
	return result, nil
}

// CalculateForParcel prices a parcel whose volume is already known.
func (c *Calculator) CalculateForParcel(parcel Parcel, card RateCard) (ShippingFeeResult, error) {
	if parcel.ActualWeightKg.IsNegative() {
		return ShippingFeeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "actual weight must not be negative")
	}
	if parcel.VolumeCm3.IsNegative() {
		return ShippingFeeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "volume must not be negative")
	}
	if card.BaseRate.IsNegative() || card.PerKgRate.IsNegative() {
		return ShippingFeeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "rate card rates must not be negative").
			WithDetails(map[string]any{"rate_card_id": card.ID.String()})
	}
	if !c.policy.VolumetricDivisor.IsPositive() {
		return ShippingFeeResult{}, pkgerrors.New(pkgerrors.CodeInternal, "volumetric divisor must be positive")
	}

	volumetric := money.Round(parcel.VolumeCm3.Div(c.policy.VolumetricDivisor))
	chargeable := money.Max(parcel.ActualWeightKg, volumetric)

	excess := money.Zero
	if chargeable.GreaterThan(c.policy.IncludedWeightKg) {
		excess = money.Round(chargeable.Sub(c.policy.IncludedWeightKg).Mul(card.PerKgRate))
	}
	base := money.Round(card.BaseRate)
	total := base.Add(excess)

	subsidized := money.Max(total.Sub(money.Round(c.policy.Subsidy)), money.Zero)

	return ShippingFeeResult{
		FromZoneID:       card.FromZoneID,
		ToZoneID:         card.ToZoneID,
		ActualWeight:     parcel.ActualWeightKg,
		VolumetricWeight: volumetric,
		ChargeableWeight: chargeable,
		BaseFee:          base,
		ExcessWeightFee:  excess,
		TotalFee:         total,
		SubsidizedFee:    subsidized,
		SubsidyAmount:    total.Sub(subsidized),
	}, nil
}
