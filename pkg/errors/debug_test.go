package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpSurfacesPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23514",
		ConstraintName: "vendor_wallets_available_balance_check",
		TableName:      "vendor_wallets",
		ColumnName:     "available_balance",
		Detail:         "Failing row contains (...)",
		Message:        "new row violates check constraint",
	}
	err := Wrap(CodeDependency, fmt.Errorf("save balances: %w", pgErr), "persist wallet")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if d.PGCode != "23514" || d.PGTable != "vendor_wallets" || d.PGColumn != "available_balance" {
		t.Fatalf("unexpected pg fields: %+v", d)
	}
	if d.PGConstraint != "vendor_wallets_available_balance_check" {
		t.Fatalf("unexpected constraint %q", d.PGConstraint)
	}
	if len(d.Chain) < 3 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}

func TestDumpSurfacesLibPQFields(t *testing.T) {
	err := fmt.Errorf("decrement stock: %w", &pq.Error{
		Code:    "23502",
		Table:   "products",
		Column:  "quantity_available",
		Message: "null value in column",
	})

	d := Dump(err)
	if d.PGCode != "23502" || d.PGTable != "products" || d.PGColumn != "quantity_available" {
		t.Fatalf("unexpected pg fields: %+v", d)
	}
	if d.Code != "" {
		t.Fatalf("expected no typed code, got %s", d.Code)
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
