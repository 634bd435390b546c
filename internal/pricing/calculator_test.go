package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func ptr(value decimal.Decimal) *decimal.Decimal {
	return &value
}

func assertMoney(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: expected %s, got %s", field, want, got.StringFixed(2))
	}
}

func TestCalculatePriceReferenceExample(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	result, err := calc.CalculatePrice(PricingInput{
		VendorBasePrice: d("500"),
		CategoryID:      uuid.New(),
		ParentUplift:    &UpliftRule{Type: enums.UpliftTypeFixed, Value: d("30")},
	}, d("0.20"))
	if err != nil {
		t.Fatalf("CalculatePrice: %v", err)
	}

	assertMoney(t, "cooperative fee", result.CooperativeFee, "25.00")
	assertMoney(t, "price after coop", result.PriceAfterCoop, "525.00")
	assertMoney(t, "marketplace uplift", result.MarketplaceUplift, "105.00")
	assertMoney(t, "logistics", result.LogisticsSurcharge, "10.00")
	assertMoney(t, "parent uplift", result.ParentUplift, "30.00")
	assertMoney(t, "bucket A", result.BucketA, "530.00")
	assertMoney(t, "bucket B", result.BucketB, "0.00")
	assertMoney(t, "bucket C", result.BucketC, "140.00")
	assertMoney(t, "bucket D", result.BucketD, "19.60")
	assertMoney(t, "final price", result.FinalPrice, "689.60")
	assertMoney(t, "gross margin", result.GrossMargin, "140.00")
	assertMoney(t, "margin percent", result.MarginPercent, "20.30")
	assertMoney(t, "vendor payout", result.VendorPayout(), "530.00")
}

func TestCalculatePriceCases(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	cases := []struct {
		name  string
		input PricingInput
		rate  string
		want  map[string]string
	}{
		{
			name:  "low price markup floor with vendor VAT",
			input: PricingInput{VendorBasePrice: d("80"), IsLegalized: true, IsVATRegistered: true},
			rate:  "0.10",
			want: map[string]string{
				"coop": "0", "uplift": "20.00", "A": "80.00", "B": "11.20", "C": "30.00", "D": "4.20", "final": "125.40",
			},
		},
		{
			name: "minimum uplift floor with percentage parent uplift",
			input: PricingInput{
				VendorBasePrice: d("200"),
				IsLegalized:     true,
				ParentUplift:    &UpliftRule{Type: enums.UpliftTypePercentage, Value: d("10")},
			},
			rate: "0.05",
			want: map[string]string{
				"coop": "0", "uplift": "15.00", "A": "220.00", "B": "0", "C": "25.00", "D": "3.50", "final": "248.50",
			},
		},
		{
			name:  "custom uplift override bypasses floors",
			input: PricingInput{VendorBasePrice: d("500"), IsLegalized: true, CustomUpliftOverride: ptr(d("7.50"))},
			rate:  "0.20",
			want: map[string]string{
				"coop": "0", "uplift": "7.50", "A": "500.00", "B": "0", "C": "17.50", "D": "2.45", "final": "519.95",
			},
		},
		{
			name:  "cooperative fee rounds half away from zero",
			input: PricingInput{VendorBasePrice: d("33.33")},
			rate:  "0",
			want: map[string]string{
				"coop": "1.67", "uplift": "20.00", "A": "33.33", "B": "0", "C": "31.67", "D": "4.43", "final": "69.43",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.CategoryID = uuid.New()
			result, err := calc.CalculatePrice(tc.input, d(tc.rate))
			if err != nil {
				t.Fatalf("CalculatePrice: %v", err)
			}
			assertMoney(t, "coop", result.CooperativeFee, tc.want["coop"])
			assertMoney(t, "uplift", result.MarketplaceUplift, tc.want["uplift"])
			assertMoney(t, "A", result.BucketA, tc.want["A"])
			assertMoney(t, "B", result.BucketB, tc.want["B"])
			assertMoney(t, "C", result.BucketC, tc.want["C"])
			assertMoney(t, "D", result.BucketD, tc.want["D"])
			assertMoney(t, "final", result.FinalPrice, tc.want["final"])
		})
	}
}

func TestCalculatePriceInvariants(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	bases := []string{"0.01", "1", "19.99", "33.33", "99.99", "100", "150.55", "500", "1234.56", "9999.99"}
	rates := []string{"0", "0.05", "0.125", "0.20", "0.35"}
	parents := []*UpliftRule{
		nil,
		{Type: enums.UpliftTypeFixed, Value: d("30")},
		{Type: enums.UpliftTypePercentage, Value: d("12.5")},
	}

	for _, base := range bases {
		for _, rate := range rates {
			for _, parent := range parents {
				for _, legalized := range []bool{false, true} {
					for _, vat := range []bool{false, true} {
						input := PricingInput{
							VendorBasePrice: d(base),
							CategoryID:      uuid.New(),
							IsLegalized:     legalized,
							IsVATRegistered: vat,
							ParentUplift:    parent,
						}
						result, err := calc.CalculatePrice(input, d(rate))
						if err != nil {
							t.Fatalf("CalculatePrice(%s, %s): %v", base, rate, err)
						}
						sum := result.BucketA.Add(result.BucketB).Add(result.BucketC).Add(result.BucketD)
						if !sum.Equal(result.FinalPrice) {
							t.Fatalf("buckets %s != final %s for base %s", sum, result.FinalPrice, base)
						}
						if !vat && !result.BucketB.IsZero() {
							t.Fatalf("bucket B must be zero for non-VAT vendor, got %s", result.BucketB)
						}
						if result.BucketC.IsPositive() && !result.BucketD.IsPositive() {
							t.Fatalf("platform VAT waived for base %s", base)
						}
						expectedCoop := decimal.Zero
						if !legalized {
							expectedCoop = d(base).Mul(d("0.05")).Round(2)
						}
						if !result.CooperativeFee.Equal(expectedCoop) {
							t.Fatalf("coop fee %s, expected %s", result.CooperativeFee, expectedCoop)
						}
						if result.MarketplaceUplift.LessThan(d("15")) {
							t.Fatalf("uplift %s below minimum", result.MarketplaceUplift)
						}
						if d(base).LessThan(d("100")) && result.MarketplaceUplift.LessThan(d("20")) {
							t.Fatalf("uplift %s below low-price markup for base %s", result.MarketplaceUplift, base)
						}
						for name, v := range map[string]decimal.Decimal{"A": result.BucketA, "B": result.BucketB, "C": result.BucketC, "D": result.BucketD} {
							if !v.Equal(v.Round(2)) {
								t.Fatalf("bucket %s not rounded to cents: %s", name, v)
							}
						}
					}
				}
			}
		}
	}
}

func TestCalculatePriceValidation(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	category := uuid.New()

	cases := map[string]PricingInput{
		"zero base":         {VendorBasePrice: d("0"), CategoryID: category},
		"negative base":     {VendorBasePrice: d("-1"), CategoryID: category},
		"missing category":  {VendorBasePrice: d("100")},
		"bad uplift type":   {VendorBasePrice: d("100"), CategoryID: category, ParentUplift: &UpliftRule{Type: "tiered", Value: d("1")}},
		"negative uplift":   {VendorBasePrice: d("100"), CategoryID: category, ParentUplift: &UpliftRule{Type: enums.UpliftTypeFixed, Value: d("-1")}},
		"negative override": {VendorBasePrice: d("100"), CategoryID: category, CustomUpliftOverride: ptr(d("-0.01"))},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := calc.CalculatePrice(input, d("0.1"))
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := calc.CalculatePrice(PricingInput{VendorBasePrice: d("100"), CategoryID: category}, d("-0.1")); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative rate, got %v", err)
	}
}

func TestRoundToFriendlyPrice(t *testing.T) {
	cases := map[string]string{
		"689.60": "690",
		"690":    "690",
		"0.01":   "5",
		"12.5":   "15",
		"100":    "100",
		"100.01": "105",
	}
	for in, want := range cases {
		if got := RoundToFriendlyPrice(d(in)); !got.Equal(d(want)) {
			t.Fatalf("RoundToFriendlyPrice(%s) = %s, want %s", in, got, want)
		}
	}
}
