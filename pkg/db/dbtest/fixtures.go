package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
)

func mustCreate(t testing.TB, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func CreateCustomer(t testing.TB, db *gorm.DB) models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Test Customer", Phone: "+201000000000"}
	mustCreate(t, db, &customer)
	return customer
}

func CreateZone(t testing.TB, db *gorm.DB, name string) models.Zone {
	t.Helper()
	zone := models.Zone{Name: name, IsActive: true}
	mustCreate(t, db, &zone)
	return zone
}

// CreateVendor inserts a non-legalized, non-VAT vendor unless mutate changes it.
func CreateVendor(t testing.TB, db *gorm.DB, mutate ...func(*models.Vendor)) models.Vendor {
	t.Helper()
	vendor := models.Vendor{Name: fmt.Sprintf("vendor-%s", uuid.NewString()[:8])}
	for _, fn := range mutate {
		fn(&vendor)
	}
	mustCreate(t, db, &vendor)
	return vendor
}

func CreatePickupLocation(t testing.TB, db *gorm.DB, vendorID, zoneID uuid.UUID) models.PickupLocation {
	t.Helper()
	location := models.PickupLocation{VendorID: vendorID, ZoneID: zoneID, Label: "Workshop", Address: "1 Souq St"}
	mustCreate(t, db, &location)
	return location
}

func CreateCategory(t testing.TB, db *gorm.DB, rate string) models.Category {
	t.Helper()
	category := models.Category{Name: "Handicrafts", UpliftRate: decimal.NewNullDecimal(decimal.RequireFromString(rate))}
	mustCreate(t, db, &category)
	return category
}

func CreateRateCard(t testing.TB, db *gorm.DB, fromZoneID, toZoneID uuid.UUID, base, perKg string) models.RateCard {
	t.Helper()
	card := models.RateCard{
		FromZoneID: fromZoneID,
		ToZoneID:   toZoneID,
		BaseRate:   decimal.RequireFromString(base),
		PerKgRate:  decimal.RequireFromString(perKg),
		IsActive:   true,
	}
	mustCreate(t, db, &card)
	return card
}

// CreateProduct inserts an active ready-stock product priced at the reference breakdown
// (base 500, A 530, C 140, D 19.60, final 689.60) unless mutate changes it.
func CreateProduct(t testing.TB, db *gorm.DB, vendorID uuid.UUID, location models.PickupLocation, categoryID uuid.UUID, mutate ...func(*models.Product)) models.Product {
	t.Helper()
	d := decimal.RequireFromString
	product := models.Product{
		VendorID:           vendorID,
		CategoryID:         categoryID,
		PickupLocationID:   location.ID,
		Name:               "Hand-woven basket",
		Status:             enums.ProductStatusActive,
		StockMode:          enums.StockModeReadyStock,
		QuantityAvailable:  10,
		WeightKg:           d("1.5"),
		LengthCm:           d("20"),
		WidthCm:            d("20"),
		HeightCm:           d("35"),
		CostPrice:          d("500"),
		FinalPrice:         d("689.60"),
		CooperativeFee:     d("25"),
		ParentUplift:       d("30"),
		MarketplaceUplift:  d("105"),
		LogisticsSurcharge: d("10"),
		VendorVAT:          decimal.Zero,
		PlatformVAT:        d("19.60"),
		BucketA:            d("530"),
		BucketB:            decimal.Zero,
		BucketC:            d("140"),
		BucketD:            d("19.60"),
	}
	for _, fn := range mutate {
		fn(&product)
	}
	mustCreate(t, db, &product)
	return product
}
