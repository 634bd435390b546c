package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

// CategoryRate is a category's marketplace uplift rate. A pinned Exact rate wins;
// otherwise Default applies unless a custom rate inside [Min, Max] is requested.
type CategoryRate struct {
	CategoryID uuid.UUID
	Exact      *decimal.Decimal
	Min        decimal.Decimal
	Default    decimal.Decimal
	Max        decimal.Decimal
}

// Resolve picks the rate to apply for an optional custom rate.
func (r CategoryRate) Resolve(custom *decimal.Decimal) (decimal.Decimal, error) {
	if r.Exact != nil {
		return *r.Exact, nil
	}
	if custom == nil {
		return r.Default, nil
	}
	if custom.LessThan(r.Min) || custom.GreaterThan(r.Max) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeBusinessRule, "custom uplift rate outside category range").
			WithDetails(map[string]any{
				"category_id": r.CategoryID.String(),
				"custom_rate": custom.String(),
				"min":         r.Min.String(),
				"max":         r.Max.String(),
			})
	}
	return *custom, nil
}

// RateTable looks up a category's uplift rate.
type RateTable interface {
	Rate(ctx context.Context, categoryID uuid.UUID) (CategoryRate, error)
}

// StaticRateTable is an in-memory RateTable.
type StaticRateTable map[uuid.UUID]CategoryRate

func (t StaticRateTable) Rate(_ context.Context, categoryID uuid.UUID) (CategoryRate, error) {
	rate, ok := t[categoryID]
	if !ok {
		return CategoryRate{}, categoryNotFound(categoryID)
	}
	rate.CategoryID = categoryID
	return rate, nil
}

// CategoryRepository reads uplift rates from the categories table.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

func (r *CategoryRepository) Rate(ctx context.Context, categoryID uuid.UUID) (CategoryRate, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CategoryRate{}, categoryNotFound(categoryID)
		}
		return CategoryRate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return rateFromCategory(category)
}

func rateFromCategory(category models.Category) (CategoryRate, error) {
	rate := CategoryRate{CategoryID: category.ID}
	if category.UpliftRate.Valid {
		exact := category.UpliftRate.Decimal
		rate.Exact = &exact
		return rate, nil
	}
	if !category.UpliftMin.Valid || !category.UpliftDefault.Valid || !category.UpliftMax.Valid {
		return CategoryRate{}, pkgerrors.New(pkgerrors.CodeBusinessRule, "category has no uplift rate configured").
			WithDetails(map[string]any{"category_id": category.ID.String()})
	}
	rate.Min = category.UpliftMin.Decimal
	rate.Default = category.UpliftDefault.Decimal
	rate.Max = category.UpliftMax.Decimal
	return rate, nil
}

// CachedRateTable memoizes another RateTable for ttl. Lookup failures are not cached.
type CachedRateTable struct {
	next  RateTable
	cache *cache.Cache
}

func NewCachedRateTable(next RateTable, ttl, cleanupInterval time.Duration) *CachedRateTable {
	return &CachedRateTable{next: next, cache: cache.New(ttl, cleanupInterval)}
}

func (c *CachedRateTable) Rate(ctx context.Context, categoryID uuid.UUID) (CategoryRate, error) {
	key := categoryID.String()
	if cached, found := c.cache.Get(key); found {
		return cached.(CategoryRate), nil
	}
	rate, err := c.next.Rate(ctx, categoryID)
	if err != nil {
		return CategoryRate{}, err
	}
	c.cache.Set(key, rate, cache.DefaultExpiration)
	return rate, nil
}

// Invalidate drops the cached rate for categoryID.
func (c *CachedRateTable) Invalidate(categoryID uuid.UUID) {
	c.cache.Delete(categoryID.String())
}

func categoryNotFound(categoryID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "category not found").
		WithDetails(map[string]any{"category_id": categoryID.String()})
}
