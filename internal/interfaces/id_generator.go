package interfaces

import "github.com/sheikh-saqib/mini-banking-ledger/internal/models"

// IDGenerator hands out account ids. Implementations must be safe for
// concurrent use and must not repeat an id.
type IDGenerator interface {
	NewID() models.AccountID
}
