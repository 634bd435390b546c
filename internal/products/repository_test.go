package product

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/dbtest"
	"github.com/arooba/marketplace-backend/pkg/db/models"
)

type catalog struct {
	vendor   models.Vendor
	location models.PickupLocation
	category models.Category
}

func seedCatalog(t *testing.T, conn *gorm.DB) catalog {
	t.Helper()
	zone := dbtest.CreateZone(t, conn, "Cairo")
	vendor := dbtest.CreateVendor(t, conn)
	return catalog{
		vendor:   vendor,
		location: dbtest.CreatePickupLocation(t, conn, vendor.ID, zone.ID),
		category: dbtest.CreateCategory(t, conn, "0.20"),
	}
}

func TestRepositoryStockMutations(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	c := seedCatalog(t, conn)
	product := dbtest.CreateProduct(t, conn, c.vendor.ID, c.location, c.category.ID)
	repo := NewRepository(conn)

	require.NoError(t, repo.DecrementStock(ctx, product.ID, 4))
	require.NoError(t, repo.DecrementStock(ctx, product.ID, 6))

	err := repo.DecrementStock(ctx, product.ID, 1)
	require.True(t, errors.Is(err, ErrInsufficientStock), "got %v", err)

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 0, reloaded.QuantityAvailable)

	require.NoError(t, repo.RestoreStock(ctx, product.ID, 3))
	reloaded, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 3, reloaded.QuantityAvailable)

	require.ErrorIs(t, repo.RestoreStock(ctx, uuid.New(), 1), gorm.ErrRecordNotFound)
}

func TestRepositoryFindForOrder(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	c := seedCatalog(t, conn)
	first := dbtest.CreateProduct(t, conn, c.vendor.ID, c.location, c.category.ID)
	second := dbtest.CreateProduct(t, conn, c.vendor.ID, c.location, c.category.ID)
	repo := NewRepository(conn)

	missing := uuid.New()
	found, err := repo.FindForOrder(ctx, []uuid.UUID{first.ID, second.ID, missing})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.NotNil(t, found[first.ID].PickupLocation)
	require.Equal(t, c.location.ZoneID, found[first.ID].PickupLocation.ZoneID)
	require.NotNil(t, found[second.ID].Vendor)
	_, ok := found[missing]
	require.False(t, ok)

	empty, err := repo.FindForOrder(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
