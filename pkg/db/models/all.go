package models

// All lists every persisted model, in dependency order, for AutoMigrate in
// sqlite-backed tests and local tooling.
func All() []any {
	return []any{
		&Customer{},
		&Zone{},
		&Vendor{},
		&PickupLocation{},
		&Category{},
		&Product{},
		&RateCard{},
		&Order{},
		&Shipment{},
		&OrderItem{},
		&TransactionSplit{},
		&VendorWallet{},
		&LedgerEntry{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
