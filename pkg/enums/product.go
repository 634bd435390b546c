package enums

import "fmt"

// ProductStatus maps to the product_status_enum enum in Postgres.
type ProductStatus string

const (
	ProductStatusActive ProductStatus = "active"
	ProductStatusPaused ProductStatus = "paused"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusPaused,
}

// IsValid reports whether the value matches the canonical product status enum.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}

// StockMode maps to the stock_mode_enum enum in Postgres.
type StockMode string

const (
	StockModeReadyStock  StockMode = "ready_stock"
	StockModeMadeToOrder StockMode = "made_to_order"
)

var validStockModes = []StockMode{
	StockModeReadyStock,
	StockModeMadeToOrder,
}

// IsValid reports whether the value matches the canonical stock mode enum.
func (m StockMode) IsValid() bool {
	for _, candidate := range validStockModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// TracksStock reports whether orders decrement quantity_available.
func (m StockMode) TracksStock() bool {
	return m == StockModeReadyStock
}

// ParseStockMode converts raw input into StockMode.
func ParseStockMode(value string) (StockMode, error) {
	for _, candidate := range validStockModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock mode %q", value)
}
