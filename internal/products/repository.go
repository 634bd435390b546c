package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

// ErrInsufficientStock is returned when a conditional decrement matches no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository wires together the product persistence helpers used by pricing and orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product with its vendor and pickup location.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("PickupLocation").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindForOrder loads the requested products keyed by id. Missing ids are simply absent.
func (r *Repository) FindForOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("PickupLocation").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindVendor loads a vendor row.
func (r *Repository) FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// DecrementStock subtracts qty only while enough stock remains.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity_available >= ?", productID, qty).
		Update("quantity_available", gorm.Expr("quantity_available - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestoreStock adds qty back to the product.
func (r *Repository) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("quantity_available", gorm.Expr("quantity_available + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SavePricing persists the cached price breakdown columns.
func (r *Repository) SavePricing(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"final_price":         product.FinalPrice,
			"cooperative_fee":     product.CooperativeFee,
			"parent_uplift":       product.ParentUplift,
			"marketplace_uplift":  product.MarketplaceUplift,
			"logistics_surcharge": product.LogisticsSurcharge,
			"vendor_vat":          product.VendorVAT,
			"platform_vat":        product.PlatformVAT,
			"bucket_a":            product.BucketA,
			"bucket_b":            product.BucketB,
			"bucket_c":            product.BucketC,
			"bucket_d":            product.BucketD,
			"priced_at":           product.PricedAt,
		}).Error
}

func notFound(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"product_id": productID.String()})
}
