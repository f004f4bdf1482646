package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
)

// TransactionCompleted is emitted once for every record appended to an
// account history. A transfer therefore produces two events sharing TransferID.
type TransactionCompleted struct {
	TransactionID string                 `json:"transaction_id"`
	TransferID    string                 `json:"transfer_id,omitempty"`
	AccountID     models.AccountID       `json:"account_id"`
	Counterparty  models.AccountID       `json:"counterparty,omitempty"`
	Kind          models.TransactionKind `json:"kind"`
	Amount        decimal.Decimal        `json:"amount"`
	Balance       decimal.Decimal        `json:"balance"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// FromTransaction builds the event for a record of the given account.
func FromTransaction(accountID models.AccountID, tx models.Transaction) TransactionCompleted {
	return TransactionCompleted{
		TransactionID: tx.ID,
		TransferID:    tx.TransferID,
		AccountID:     accountID,
		Counterparty:  tx.Counterparty,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Balance:       tx.BalanceAfter,
		OccurredAt:    tx.Timestamp,
	}
}
