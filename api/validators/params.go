package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/arooba/marketplace-backend/pkg/errors"
	"github.com/arooba/marketplace-backend/pkg/money"
)

// ParseUUIDParam reads a chi path parameter as a uuid.
func ParseUUIDParam(r *http.Request, key, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}

// ParseUUID parses a body field that already passed the uuid tag.
func ParseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fieldError(field, "must be a valid uuid")
	}
	return id, nil
}

// ParseDecimal parses a non-negative decimal string such as a rate or a dimension.
func ParseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fieldError(field, "must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, fieldError(field, "must not be negative")
	}
	return d, nil
}

// ParseOptionalDecimal returns nil for an absent field.
func ParseOptionalDecimal(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := ParseDecimal(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseMoney parses an EGP amount with at most two decimal places.
func ParseMoney(field, raw string) (decimal.Decimal, error) {
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, fieldError(field, err.Error())
	}
	if d.IsNegative() {
		return decimal.Zero, fieldError(field, "must not be negative")
	}
	return d, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: msg})
}
