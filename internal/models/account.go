package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountID identifies an account. It is assigned once and used as a map key.
type AccountID string

func (id AccountID) String() string {
	return string(id)
}

// Account is a point-in-time copy of an account, history included.
type Account struct {
	ID         AccountID       `json:"id"`
	HolderName string          `json:"holder_name"`
	Balance    decimal.Decimal `json:"balance"`
	History    []Transaction   `json:"history"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Summary drops the history.
func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:         a.ID,
		HolderName: a.HolderName,
		Balance:    a.Balance,
		CreatedAt:  a.CreatedAt,
	}
}

// AccountSummary is the row returned by account listings.
type AccountSummary struct {
	ID         AccountID       `json:"id"`
	HolderName string          `json:"holder_name"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
}
