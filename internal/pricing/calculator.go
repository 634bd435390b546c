package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/enums"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// UpliftRule is the markup a parent vendor adds on top of a sub-vendor's base price.
type UpliftRule struct {
	Type  enums.UpliftType
	Value decimal.Decimal
}

// PricingInput describes one product to price.
type PricingInput struct {
	VendorBasePrice      decimal.Decimal
	CategoryID           uuid.UUID
	IsVATRegistered      bool
	IsLegalized          bool
	ParentUplift         *UpliftRule
	CustomUpliftOverride *decimal.Decimal
	CustomCategoryRate   *decimal.Decimal
}

// PricingResult is the full price breakdown. BucketA+BucketB+BucketC+BucketD == FinalPrice.
type PricingResult struct {
	VendorBasePrice    decimal.Decimal
	CategoryRate       decimal.Decimal
	CooperativeFee     decimal.Decimal
	ParentUplift       decimal.Decimal
	PriceAfterCoop     decimal.Decimal
	MarketplaceUplift  decimal.Decimal
	LogisticsSurcharge decimal.Decimal
	VendorVAT          decimal.Decimal
	PlatformVAT        decimal.Decimal
	BucketA            decimal.Decimal
	BucketB            decimal.Decimal
	BucketC            decimal.Decimal
	BucketD            decimal.Decimal
	FinalPrice         decimal.Decimal
	GrossMargin        decimal.Decimal
	MarginPercent      decimal.Decimal
}

// VendorPayout is what the vendor side of the waterfall receives per unit (A+B).
func (r PricingResult) VendorPayout() decimal.Decimal {
	return r.BucketA.Add(r.BucketB)
}

// Calculator turns a vendor base price into the customer-facing price. It holds no state
// besides its policy and performs no I/O.
type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

func (c *Calculator) Policy() Policy {
	return c.policy
}

// CalculatePrice prices input using the already-resolved category uplift rate.
func (c *Calculator) CalculatePrice(input PricingInput, categoryRate decimal.Decimal) (PricingResult, error) {
	if err := validateInput(input); err != nil {
		return PricingResult{}, err
	}
	if categoryRate.IsNegative() {
		return PricingResult{}, pkgerrors.New(pkgerrors.CodeValidation, "category rate must not be negative")
	}
	p := c.policy
	base := money.Round(input.VendorBasePrice)

	cooperativeFee := money.Zero
	if !input.IsLegalized {
		cooperativeFee = money.Rate(base, p.CooperativeFeeRate)
	}

	parentUplift := money.Zero
	if rule := input.ParentUplift; rule != nil {
		switch rule.Type {
		case enums.UpliftTypeFixed:
			parentUplift = money.Round(rule.Value)
		case enums.UpliftTypePercentage:
			parentUplift = money.Percent(base, rule.Value)
		}
	}

	priceAfterCoop := base.Add(cooperativeFee)

	var marketplaceUplift decimal.Decimal
	if input.CustomUpliftOverride != nil {
		marketplaceUplift = money.Round(*input.CustomUpliftOverride)
	} else {
		lowPriceFloor := money.Zero
		if base.LessThan(p.LowPriceThreshold) {
			lowPriceFloor = p.LowPriceMarkup
		}
		marketplaceUplift = money.Max(money.Rate(priceAfterCoop, categoryRate), p.MinimumUplift, lowPriceFloor)
	}

	logistics := money.Round(p.LogisticsSurcharge)

	bucketA := base.Add(parentUplift)
	bucketB := money.Zero
	if input.IsVATRegistered {
		bucketB = money.Rate(bucketA, p.VATRate)
	}
	bucketC := money.Sum(cooperativeFee, marketplaceUplift, logistics)
	bucketD := money.Rate(bucketC, p.VATRate)
	finalPrice := money.Sum(bucketA, bucketB, bucketC, bucketD)

	marginPercent := money.Zero
	if finalPrice.IsPositive() {
		marginPercent = money.Round(bucketC.Div(finalPrice).Mul(decimal.NewFromInt(100)))
	}

	return PricingResult{
		VendorBasePrice:    base,
		CategoryRate:       categoryRate,
		CooperativeFee:     cooperativeFee,
		ParentUplift:       parentUplift,
		PriceAfterCoop:     priceAfterCoop,
		MarketplaceUplift:  marketplaceUplift,
		LogisticsSurcharge: logistics,
		VendorVAT:          bucketB,
		PlatformVAT:        bucketD,
		BucketA:            bucketA,
		BucketB:            bucketB,
		BucketC:            bucketC,
		BucketD:            bucketD,
		FinalPrice:         finalPrice,
		GrossMargin:        bucketC,
		MarginPercent:      marginPercent,
	}, nil
}

func validateInput(input PricingInput) error {
	if !input.VendorBasePrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor base price must be greater than zero").
			WithDetails(map[string]any{"vendor_base_price": money.String(input.VendorBasePrice)})
	}
	if input.CategoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if rule := input.ParentUplift; rule != nil {
		if !rule.Type.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid parent uplift type %q", rule.Type)
		}
		if rule.Value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "parent uplift value must not be negative")
		}
	}
	if input.CustomUpliftOverride != nil && input.CustomUpliftOverride.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom uplift override must not be negative")
	}
	return nil
}

var friendlyStep = decimal.NewFromInt(5)

// RoundToFriendlyPrice rounds up to the next multiple of 5 EGP. Display only.
func RoundToFriendlyPrice(price decimal.Decimal) decimal.Decimal {
	return price.Div(friendlyStep).Ceil().Mul(friendlyStep)
}
