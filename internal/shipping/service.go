package shipping

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

// Service looks up zone rate cards and prices parcels with them.
type Service struct {
	calculator *Calculator
	cards      RateCards
}

func NewService(calculator *Calculator, cards RateCards) (*Service, error) {
	if calculator == nil {
		return nil, fmt.Errorf("shipping calculator required")
	}
	if cards == nil {
		return nil, fmt.Errorf("rate cards required")
	}
	return &Service{calculator: calculator, cards: cards}, nil
}

// Quote prices a single box between two zones.
func (s *Service) Quote(ctx context.Context, input FeeInput) (ShippingFeeResult, error) {
	if err := requireZones(input.FromZoneID, input.ToZoneID); err != nil {
		return ShippingFeeResult{}, err
	}
	card, err := s.cards.FindActive(ctx, input.FromZoneID, input.ToZoneID)
	if err != nil {
		return ShippingFeeResult{}, err
	}
	return s.calculator.CalculateShippingFee(input, card)
}

// QuoteParcel prices an aggregated shipment between two zones.
func (s *Service) QuoteParcel(ctx context.Context, fromZoneID, toZoneID uuid.UUID, parcel Parcel) (ShippingFeeResult, error) {
	if err := requireZones(fromZoneID, toZoneID); err != nil {
		return ShippingFeeResult{}, err
	}
	card, err := s.cards.FindActive(ctx, fromZoneID, toZoneID)
	if err != nil {
		return ShippingFeeResult{}, err
	}
	return s.calculator.CalculateForParcel(parcel, card)
}

func requireZones(fromZoneID, toZoneID uuid.UUID) error {
	if fromZoneID == uuid.Nil || toZoneID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "from and to zone ids are required")
	}
	return nil
}
