package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/mini-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/ledger"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models/events"
)

const DefaultQueueSize = 1024

// BankService fronts the Ledger for callers such as the console shell. It
// logs every operation and forwards each appended history record to the
// event publisher from a background worker, so a slow or broken publisher
// never holds up or fails a ledger operation.
type BankService struct {
	ledger    *ledger.Ledger
	publisher interfaces.EventPublisher
	log       *zap.SugaredLogger

	mu      sync.RWMutex // guards closed against sends on queue
	closed  bool
	queue   chan events.TransactionCompleted
	done    chan struct{}
	dropped atomic.Int64
}

type Option func(*options)

type options struct {
	queueSize  int
	ledgerOpts []ledger.Option
}

// WithQueueSize sets how many events may wait for the publisher before new
// ones are dropped.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithLedgerOptions passes options through to ledger.New.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(o *options) { o.ledgerOpts = append(o.ledgerOpts, opts...) }
}

// NewBankService creates the ledger and starts the publishing worker.
// Close must be called to flush pending events.
func NewBankService(ids interfaces.IDGenerator, publisher interfaces.EventPublisher, log *zap.SugaredLogger, opts ...Option) *BankService {
	o := options{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueSize <= 0 {
		o.queueSize = DefaultQueueSize
	}

	s := &BankService{
		publisher: publisher,
		log:       log,
		queue:     make(chan events.TransactionCompleted, o.queueSize),
		done:      make(chan struct{}),
	}
	s.ledger = ledger.New(ids, append(o.ledgerOpts, ledger.WithListener(s.enqueue))...)

	go s.run()
	return s
}

// enqueue runs under the ledger's account locks and must not block.
func (s *BankService) enqueue(entries ...models.LedgerEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, e := range entries {
		select {
		case s.queue <- events.FromTransaction(e.AccountID, e.Transaction):
		default:
			s.dropped.Add(1)
			s.log.Warnw("Event queue full, dropping transaction event",
				"account_id", e.AccountID,
				"transaction_id", e.Transaction.ID)
		}
	}
}

func (s *BankService) run() {
	defer close(s.done)
	for ev := range s.queue {
		if err := s.publisher.Publish(context.Background(), ev); err != nil {
			s.log.Errorw("Failed to publish transaction event",
				"transaction_id", ev.TransactionID,
				"account_id", ev.AccountID,
				"kind", ev.Kind,
				"error", err)
			continue
		}
		s.log.Debugw("Transaction event published",
			"transaction_id", ev.TransactionID,
			"account_id", ev.AccountID)
	}
}

// Close stops accepting events, waits for queued ones to be published (or
// ctx to end) and closes the publisher.
func (s *BankService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warnw("Stopped waiting for pending events", "pending", len(s.queue))
		return ctx.Err()
	}
	return s.publisher.Close()
}

// Dropped is the number of events discarded because the queue was full.
func (s *BankService) Dropped() int64 {
	return s.dropped.Load()
}

func (s *BankService) CreateAccount(ctx context.Context, holderName string, initialBalance decimal.Decimal) (models.AccountID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := s.ledger.CreateAccount(holderName, initialBalance)
	if err != nil {
		s.rejected("create account", err, "initial_balance", initialBalance)
		return "", err
	}
	s.log.Infow("Account created", "account_id", id, "initial_balance", initialBalance)
	return id, nil
}

func (s *BankService) Deposit(ctx context.Context, id models.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.ledger.Deposit(id, amount)
	if err != nil {
		s.rejected("deposit", err, "account_id", id, "amount", amount)
		return decimal.Zero, err
	}
	s.log.Infow("Deposit completed", "account_id", id, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *BankService) Withdraw(ctx context.Context, id models.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.ledger.Withdraw(id, amount)
	if err != nil {
		s.rejected("withdraw", err, "account_id", id, "amount", amount)
		return decimal.Zero, err
	}
	s.log.Infow("Withdrawal completed", "account_id", id, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *BankService) Transfer(ctx context.Context, from, to models.AccountID, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	fromBalance, toBalance, err := s.ledger.Transfer(from, to, amount)
	if err != nil {
		s.rejected("transfer", err, "source_account_id", from, "destination_account_id", to, "amount", amount)
		return decimal.Zero, decimal.Zero, err
	}
	s.log.Infow("Transfer completed",
		"source_account_id", from,
		"destination_account_id", to,
		"amount", amount)
	return fromBalance, toBalance, nil
}

func (s *BankService) Balance(ctx context.Context, id models.AccountID) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return s.ledger.BalanceOf(id)
}

func (s *BankService) Account(ctx context.Context, id models.AccountID) (models.AccountSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.AccountSummary{}, err
	}
	return s.ledger.AccountOf(id)
}

func (s *BankService) History(ctx context.Context, id models.AccountID) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ledger.HistoryOf(id)
}

func (s *BankService) Statement(ctx context.Context, id models.AccountID) (models.Account, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, err
	}
	return s.ledger.Statement(id)
}

func (s *BankService) ListAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ledger.ListAccounts(), nil
}

func (s *BankService) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return s.ledger.TotalBalance(), nil
}

func (s *BankService) rejected(op string, err error, kv ...any) {
	s.log.Warnw("Operation rejected", append([]any{"operation", op, "code", string(ledger.CodeOf(err)), "error", err}, kv...)...)
}
