package shipping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func card(base, perKg string) RateCard {
	return RateCard{ID: uuid.New(), FromZoneID: uuid.New(), ToZoneID: uuid.New(), BaseRate: d(base), PerKgRate: d(perKg)}
}

func TestCalculateShippingFeeVolumetric(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	from, to := uuid.New(), uuid.New()
	result, err := calc.CalculateShippingFee(FeeInput{
		ActualWeightKg: d("1.5"),
		LengthCm:       d("20"),
		WidthCm:        d("20"),
		HeightCm:       d("35"),
		FromZoneID:     from,
		ToZoneID:       to,
	}, card("55", "10"))
	if err != nil {
		t.Fatalf("CalculateShippingFee: %v", err)
	}

	checks := map[string][2]decimal.Decimal{
		"volumetric": {result.VolumetricWeight, d("2.80")},
		"chargeable": {result.ChargeableWeight, d("2.80")},
		"base":       {result.BaseFee, d("55.00")},
		"excess":     {result.ExcessWeightFee, d("18.00")},
		"total":      {result.TotalFee, d("73.00")},
		"subsidized": {result.SubsidizedFee, d("73.00")},
		"subsidy":    {result.SubsidyAmount, d("0")},
	}
	for name, pair := range checks {
		if !pair[0].Equal(pair[1]) {
			t.Fatalf("%s: expected %s, got %s", name, pair[1], pair[0])
		}
	}
	if result.FromZoneID != from || result.ToZoneID != to {
		t.Fatalf("zones not carried through")
	}
}

func TestCalculateShippingFeeActualWeightWins(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	result, err := calc.CalculateShippingFee(FeeInput{
		ActualWeightKg: d("4.25"),
		LengthCm:       d("10"),
		WidthCm:        d("10"),
		HeightCm:       d("10"),
	}, card("40", "7.5"))
	if err != nil {
		t.Fatalf("CalculateShippingFee: %v", err)
	}
	if !result.VolumetricWeight.Equal(d("0.2")) {
		t.Fatalf("volumetric: %s", result.VolumetricWeight)
	}
	if !result.ChargeableWeight.Equal(d("4.25")) {
		t.Fatalf("chargeable: %s", result.ChargeableWeight)
	}
	// 3.25 × 7.5 = 24.375 → 24.38
	if !result.ExcessWeightFee.Equal(d("24.38")) {
		t.Fatalf("excess: %s", result.ExcessWeightFee)
	}
	if !result.TotalFee.Equal(d("64.38")) {
		t.Fatalf("total: %s", result.TotalFee)
	}
}

func TestCalculateShippingFeeFirstKiloIncluded(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	for _, weight := range []string{"0", "0.4", "1"} {
		result, err := calc.CalculateShippingFee(FeeInput{ActualWeightKg: d(weight)}, card("30", "12"))
		if err != nil {
			t.Fatalf("CalculateShippingFee(%s): %v", weight, err)
		}
		if !result.ExcessWeightFee.IsZero() {
			t.Fatalf("weight %s: expected no excess fee, got %s", weight, result.ExcessWeightFee)
		}
		if !result.TotalFee.Equal(d("30")) {
			t.Fatalf("weight %s: total %s", weight, result.TotalFee)
		}
	}
}

func TestCalculateShippingFeeSubsidy(t *testing.T) {
	policy := DefaultPolicy()
	policy.Subsidy = d("20")
	calc := NewCalculator(policy)

	result, err := calc.CalculateShippingFee(FeeInput{ActualWeightKg: d("2")}, card("25", "10"))
	if err != nil {
		t.Fatalf("CalculateShippingFee: %v", err)
	}
	if !result.TotalFee.Equal(d("35")) || !result.SubsidizedFee.Equal(d("15")) || !result.SubsidyAmount.Equal(d("20")) {
		t.Fatalf("unexpected subsidy split: total %s subsidized %s subsidy %s", result.TotalFee, result.SubsidizedFee, result.SubsidyAmount)
	}

	result, err = calc.CalculateShippingFee(FeeInput{ActualWeightKg: d("0.5")}, card("12", "10"))
	if err != nil {
		t.Fatalf("CalculateShippingFee: %v", err)
	}
	if !result.SubsidizedFee.IsZero() {
		t.Fatalf("subsidized fee must floor at zero, got %s", result.SubsidizedFee)
	}
	if !result.SubsidyAmount.Equal(d("12")) {
		t.Fatalf("subsidy must be capped at total fee, got %s", result.SubsidyAmount)
	}
}

func TestCalculateForParcel(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	// two 20×20×35 boxes
	result, err := calc.CalculateForParcel(Parcel{ActualWeightKg: d("3"), VolumeCm3: d("28000")}, card("55", "10"))
	if err != nil {
		t.Fatalf("CalculateForParcel: %v", err)
	}
	if !result.VolumetricWeight.Equal(d("5.6")) || !result.TotalFee.Equal(d("101")) {
		t.Fatalf("unexpected parcel fee: volumetric %s total %s", result.VolumetricWeight, result.TotalFee)
	}
}

func TestCalculateShippingFeeValidation(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	inputs := map[string]FeeInput{
		"negative weight": {ActualWeightKg: d("-1")},
		"negative length": {ActualWeightKg: d("1"), LengthCm: d("-1")},
		"negative height": {ActualWeightKg: d("1"), HeightCm: d("-0.5")},
	}
	for name, input := range inputs {
		if _, err := calc.CalculateShippingFee(input, card("10", "1")); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := calc.CalculateShippingFee(FeeInput{ActualWeightKg: d("1")}, card("-10", "1")); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative rate, got %v", err)
	}
}
