package interfaces

import (
	"context"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/models/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.TransactionCompleted) error
	Close() error
}
