package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind identifies what a history record did to its account.
type TransactionKind string

const (
	Deposit     TransactionKind = "deposit"
	Withdrawal  TransactionKind = "withdrawal"
	TransferOut TransactionKind = "transfer_out"
	TransferIn  TransactionKind = "transfer_in"
)

// Label is the human readable name used by statements.
func (k TransactionKind) Label() string {
	switch k {
	case Deposit:
		return "Deposit"
	case Withdrawal:
		return "Withdrawal"
	case TransferOut:
		return "Transfer Out"
	case TransferIn:
		return "Transfer In"
	default:
		return string(k)
	}
}

// IsTransfer reports whether the record is one side of a transfer.
func (k TransactionKind) IsTransfer() bool {
	return k == TransferOut || k == TransferIn
}

// Transaction is one completed event in a single account's history.
// Records are values and are never changed once appended.
type Transaction struct {
	ID           string          `json:"id"`                     // unique record id (uuid)
	Kind         TransactionKind `json:"kind"`                   // deposit, withdrawal, transfer_out or transfer_in
	Amount       decimal.Decimal `json:"amount"`                 // always positive
	BalanceAfter decimal.Decimal `json:"balance_after"`          // account balance right after this record
	Timestamp    time.Time       `json:"timestamp"`              // non-decreasing within one account
	Counterparty AccountID       `json:"counterparty,omitempty"` // other side of a transfer
	TransferID   string          `json:"transfer_id,omitempty"`  // shared by both sides of a transfer
}
