package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
)

// RateCards finds the active rate card for a zone pair.
type RateCards interface {
	FindActive(ctx context.Context, fromZoneID, toZoneID uuid.UUID) (RateCard, error)
}

type RateCardRepository struct {
	db *gorm.DB
}

func NewRateCardRepository(db *gorm.DB) *RateCardRepository {
	return &RateCardRepository{db: db}
}

func (r *RateCardRepository) WithTx(tx *gorm.DB) *RateCardRepository {
	return &RateCardRepository{db: tx}
}

func (r *RateCardRepository) FindActive(ctx context.Context, fromZoneID, toZoneID uuid.UUID) (RateCard, error) {
	var row models.RateCard
	err := r.db.WithContext(ctx).
		Where("from_zone_id = ? AND to_zone_id = ? AND is_active = ?", fromZoneID, toZoneID, true).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RateCard{}, noActiveRateCard(fromZoneID, toZoneID)
		}
		return RateCard{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rate card")
	}
	return RateCard{
		ID:         row.ID,
		FromZoneID: row.FromZoneID,
		ToZoneID:   row.ToZoneID,
		BaseRate:   row.BaseRate,
		PerKgRate:  row.PerKgRate,
	}, nil
}

func noActiveRateCard(fromZoneID, toZoneID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeBusinessRule, "no active rate card for zone pair").
		WithDetails(map[string]any{
			"from_zone_id": fromZoneID.String(),
			"to_zone_id":   toZoneID.String(),
		})
}

// CachedRateCards memoizes found rate cards. Missing pairs are looked up every time so a
// newly activated card is picked up without waiting for expiry.
type CachedRateCards struct {
	next  RateCards
	cache *cache.Cache
}

func NewCachedRateCards(next RateCards, ttl, cleanupInterval time.Duration) *CachedRateCards {
	return &CachedRateCards{next: next, cache: cache.New(ttl, cleanupInterval)}
}

func (c *CachedRateCards) FindActive(ctx context.Context, fromZoneID, toZoneID uuid.UUID) (RateCard, error) {
	key := pairKey(fromZoneID, toZoneID)
	if cached, found := c.cache.Get(key); found {
		return cached.(RateCard), nil
	}
	card, err := c.next.FindActive(ctx, fromZoneID, toZoneID)
	if err != nil {
		return RateCard{}, err
	}
	c.cache.Set(key, card, cache.DefaultExpiration)
	return card, nil
}

// Flush drops every cached card.
func (c *CachedRateCards) Flush() {
	c.cache.Flush()
}

func pairKey(fromZoneID, toZoneID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", fromZoneID, toZoneID)
}
