package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/config"
)

// Policy holds the marketplace constants applied on top of a vendor's base price.
type Policy struct {
	CooperativeFeeRate decimal.Decimal
	MinimumUplift      decimal.Decimal
	LowPriceThreshold  decimal.Decimal
	LowPriceMarkup     decimal.Decimal
	LogisticsSurcharge decimal.Decimal
	VATRate            decimal.Decimal
}

// DefaultPolicy returns the production constants: 5% cooperative fee, 15 EGP minimum
// uplift, 20 EGP markup under 100 EGP, 10 EGP logistics surcharge and 14% VAT.
func DefaultPolicy() Policy {
	return Policy{
		CooperativeFeeRate: decimal.RequireFromString("0.05"),
		MinimumUplift:      decimal.NewFromInt(15),
		LowPriceThreshold:  decimal.NewFromInt(100),
		LowPriceMarkup:     decimal.NewFromInt(20),
		LogisticsSurcharge: decimal.NewFromInt(10),
		VATRate:            decimal.RequireFromString("0.14"),
	}
}

func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		CooperativeFeeRate: cfg.CooperativeFeeRate,
		MinimumUplift:      cfg.MinimumUplift,
		LowPriceThreshold:  cfg.LowPriceThreshold,
		LowPriceMarkup:     cfg.LowPriceMarkup,
		LogisticsSurcharge: cfg.LogisticsSurcharge,
		VATRate:            cfg.VATRate,
	}
}
