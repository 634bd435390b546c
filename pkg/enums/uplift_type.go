package enums

import "fmt"

// UpliftType describes how a parent vendor marks up a sub-vendor's base price.
type UpliftType string

const (
	UpliftTypeFixed      UpliftType = "fixed"
	UpliftTypePercentage UpliftType = "percentage"
)

var validUpliftTypes = []UpliftType{
	UpliftTypeFixed,
	UpliftTypePercentage,
}

// IsValid reports whether the value matches the canonical uplift type enum.
func (t UpliftType) IsValid() bool {
	for _, candidate := range validUpliftTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseUpliftType converts raw input into UpliftType.
func ParseUpliftType(value string) (UpliftType, error) {
	for _, candidate := range validUpliftTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid uplift type %q", value)
}
