package enums

import "fmt"

// LedgerTransactionType maps to the ledger_transaction_type_enum enum in Postgres.
type LedgerTransactionType string

const (
	LedgerTransactionSale          LedgerTransactionType = "sale"
	LedgerTransactionEscrowRelease LedgerTransactionType = "escrow_release"
	LedgerTransactionRefund        LedgerTransactionType = "refund"
	LedgerTransactionPayout        LedgerTransactionType = "payout"
)

var validLedgerTransactionTypes = []LedgerTransactionType{
	LedgerTransactionSale,
	LedgerTransactionEscrowRelease,
	LedgerTransactionRefund,
	LedgerTransactionPayout,
}

// IsValid reports whether the value matches the canonical ledger transaction enum.
func (t LedgerTransactionType) IsValid() bool {
	for _, candidate := range validLedgerTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerTransactionType converts raw input into LedgerTransactionType.
func ParseLedgerTransactionType(value string) (LedgerTransactionType, error) {
	for _, candidate := range validLedgerTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger transaction type %q", value)
}

// BalanceStatus tags which wallet balance a ledger entry moved.
type BalanceStatus string

const (
	BalanceStatusPending   BalanceStatus = "pending"
	BalanceStatusAvailable BalanceStatus = "available"
)

// IsValid reports whether the value is a known balance status.
func (s BalanceStatus) IsValid() bool {
	return s == BalanceStatusPending || s == BalanceStatusAvailable
}
