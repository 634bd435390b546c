package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
	require.NoError(t, ValidateDir("migrations"))
}

func TestMigrationsDefineMarketplaceSchema(t *testing.T) {
	entries, err := embedded.ReadDir(embeddedDir)
	require.NoError(t, err)

	var all strings.Builder
	for _, e := range entries {
		b, err := embedded.ReadFile(embeddedDir + "/" + e.Name())
		require.NoError(t, err)
		all.Write(b)
	}
	content := all.String()

	for _, sub := range []string{
		"CREATE TYPE order_status_enum AS ENUM",
		"'rejected_shipping'",
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT chk_products_buckets_sum",
		"CREATE TABLE IF NOT EXISTS shipments",
		"CREATE TABLE IF NOT EXISTS transaction_splits",
		"CONSTRAINT chk_order_items_total CHECK (unit_price * quantity = total_price)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_rate_cards_active_pair",
		"CREATE TABLE IF NOT EXISTS vendor_wallets",
		"CREATE TRIGGER trg_ledger_entries_append_only",
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestValidateRejectsBadMigrations(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/create_orders.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"m/20260101000000_create_orders.sql": {Data: []byte("-- +goose Up\n")},
		},
		"duplicate version": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"unbalanced statement": {
			"m/20260101000000_fn.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, validateFS(fsys, "m"))
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Payout Reference")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_payout_reference.sql"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
	_, err = CreateSQLMigration(filepath.Join(dir, "x"), "")
	assert.Error(t, err)
}

func TestCreateSQLMigrationSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20990101000000_future.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := createSQLMigration(dir, "next", time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20990101000001_next.sql", filepath.Base(path))
}
