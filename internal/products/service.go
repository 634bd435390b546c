package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/internal/pricing"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/logger"
)

// Service exposes product read paths and the pricing refresh.
type Service interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Reprice(ctx context.Context, productID uuid.UUID) (*RepriceResult, error)
}

// Quoter prices a product input; satisfied by *pricing.Service.
type Quoter interface {
	Quote(ctx context.Context, input pricing.PricingInput) (pricing.PricingResult, error)
}

// RepriceResult is the refreshed product together with the breakdown it was priced with.
type RepriceResult struct {
	Product *models.Product
	Pricing pricing.PricingResult
}

type service struct {
	repo   *Repository
	quoter Quoter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a product service backed by the repository and pricing quoter.
func NewService(repo *Repository, quoter Quoter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("pricing quoter required")
	}
	return &service{repo: repo, quoter: quoter, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(productID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// Reprice recomputes the cached breakdown from the vendor's flags, the parent uplift rule
// and the category rate, then stores it on the product.
func (s *service) Reprice(ctx context.Context, productID uuid.UUID) (*RepriceResult, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	vendor := product.Vendor
	if vendor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").
			WithDetails(map[string]any{"vendor_id": product.VendorID.String()})
	}

	input := pricing.PricingInput{
		VendorBasePrice: product.CostPrice,
		CategoryID:      product.CategoryID,
		IsVATRegistered: vendor.IsVATRegistered,
		IsLegalized:     vendor.IsLegalized,
	}
	rule, err := s.parentUplift(ctx, vendor)
	if err != nil {
		return nil, err
	}
	input.ParentUplift = rule
	if product.CustomUplift.Valid {
		override := product.CustomUplift.Decimal
		input.CustomUpliftOverride = &override
	}
	if product.CustomRate.Valid {
		rate := product.CustomRate.Decimal
		input.CustomCategoryRate = &rate
	}

	result, err := s.quoter.Quote(ctx, input)
	if err != nil {
		return nil, err
	}

	pricedAt := s.now().UTC()
	applyPricing(product, result)
	product.PricedAt = &pricedAt
	if err := s.repo.SavePricing(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product pricing")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id":  product.ID.String(),
			"final_price": result.FinalPrice.StringFixed(2),
		})
		s.logg.Info(logCtx, "product.repriced")
	}
	return &RepriceResult{Product: product, Pricing: result}, nil
}

func (s *service) parentUplift(ctx context.Context, vendor *models.Vendor) (*pricing.UpliftRule, error) {
	if vendor.ParentVendorID == nil || vendor.UpliftType == nil {
		return nil, nil
	}
	if _, err := s.repo.FindVendor(ctx, *vendor.ParentVendorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent vendor not found").
				WithDetails(map[string]any{"parent_vendor_id": vendor.ParentVendorID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent vendor")
	}
	return &pricing.UpliftRule{Type: *vendor.UpliftType, Value: vendor.UpliftValue.Decimal}, nil
}

func applyPricing(product *models.Product, result pricing.PricingResult) {
	product.FinalPrice = result.FinalPrice
	product.CooperativeFee = result.CooperativeFee
	product.ParentUplift = result.ParentUplift
	product.MarketplaceUplift = result.MarketplaceUplift
	product.LogisticsSurcharge = result.LogisticsSurcharge
	product.VendorVAT = result.VendorVAT
	product.PlatformVAT = result.PlatformVAT
	product.BucketA = result.BucketA
	product.BucketB = result.BucketB
	product.BucketC = result.BucketC
	product.BucketD = result.BucketD
}
