package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/config"
)

// Policy holds the parcel constants shared by every rate card.
type Policy struct {
	VolumetricDivisor decimal.Decimal
	IncludedWeightKg  decimal.Decimal
	Subsidy           decimal.Decimal
}

// DefaultPolicy uses a 5000 cm³/kg divisor, includes the first kilogram in the base
// fee and applies no platform subsidy.
func DefaultPolicy() Policy {
	return Policy{
		VolumetricDivisor: decimal.NewFromInt(5000),
		IncludedWeightKg:  decimal.NewFromInt(1),
		Subsidy:           decimal.Zero,
	}
}

func PolicyFromConfig(cfg config.ShippingConfig) Policy {
	return Policy{
		VolumetricDivisor: cfg.VolumetricDivisor,
		IncludedWeightKg:  cfg.IncludedWeightKg,
		Subsidy:           cfg.PlatformSubsidy,
	}
}
