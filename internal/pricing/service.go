package pricing

import (
	"context"
	"fmt"
)

// Service resolves category rates and prices products.
type Service struct {
	calculator *Calculator
	rates      RateTable
}

func NewService(calculator *Calculator, rates RateTable) (*Service, error) {
	if calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate table required")
	}
	return &Service{calculator: calculator, rates: rates}, nil
}

// Quote validates input, resolves the category rate and runs the calculator.
func (s *Service) Quote(ctx context.Context, input PricingInput) (PricingResult, error) {
	if err := validateInput(input); err != nil {
		return PricingResult{}, err
	}
	rate, err := s.rates.Rate(ctx, input.CategoryID)
	if err != nil {
		return PricingResult{}, err
	}
	resolved, err := rate.Resolve(input.CustomCategoryRate)
	if err != nil {
		return PricingResult{}, err
	}
	return s.calculator.CalculatePrice(input, resolved)
}
