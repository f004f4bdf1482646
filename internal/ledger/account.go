package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
)

// account is the mutable state behind one account. Every field except id,
// holderName and createdAt is guarded by mu.
type account struct {
	mu         sync.Mutex
	id         models.AccountID
	holderName string
	createdAt  time.Time
	balance    decimal.Decimal
	history    []models.Transaction
}

// stamp returns t, raised to the creation time or the last record's time
// if the clock went backwards.
func (a *account) stamp(t time.Time) time.Time {
	floor := a.createdAt
	if n := len(a.history); n > 0 {
		floor = a.history[n-1].Timestamp
	}
	if t.Before(floor) {
		return floor
	}
	return t
}

func (a *account) record(tx models.Transaction) models.LedgerEntry {
	a.history = append(a.history, tx)
	return models.LedgerEntry{AccountID: a.id, Transaction: tx}
}

func (a *account) summary() models.AccountSummary {
	return models.AccountSummary{
		ID:         a.id,
		HolderName: a.holderName,
		Balance:    a.balance,
		CreatedAt:  a.createdAt,
	}
}

func (a *account) historyCopy() []models.Transaction {
	out := make([]models.Transaction, len(a.history))
	copy(out, a.history)
	return out
}
