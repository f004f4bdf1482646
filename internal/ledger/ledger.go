package ledger

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/mini-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
)

// maxIDAttempts bounds how often CreateAccount asks the generator for an id
// that is not already taken.
const maxIDAttempts = 16

// maxScale bounds the decimal exponent of any accepted amount.
const maxScale = 18

func outOfRange(amount decimal.Decimal) bool {
	exp := amount.Exponent()
	return exp > maxScale || exp < -maxScale
}

// Listener receives the records appended by one successful operation. It is
// called while the affected accounts are still locked, so per-account order
// is preserved; it must not block or call back into the Ledger.
type Listener func(entries ...models.LedgerEntry)

// Ledger owns every account and is the only thing allowed to change them.
// Map membership is guarded by mapMu, each account by its own mutex.
// Whenever two or more accounts are locked they are locked in ascending id
// order, and no account lock is ever held while waiting for mapMu.
type Ledger struct {
	ids      interfaces.IDGenerator
	now      func() time.Time
	newTxID  func() string
	listener Listener

	mapMu    sync.RWMutex
	accounts map[models.AccountID]*account
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithTransactionIDs replaces the uuid generator used for record ids.
func WithTransactionIDs(next func() string) Option {
	return func(l *Ledger) { l.newTxID = next }
}

// WithListener registers a Listener for appended records.
func WithListener(fn Listener) Option {
	return func(l *Ledger) { l.listener = fn }
}

// New creates an empty ledger that draws account ids from ids.
func New(ids interfaces.IDGenerator, opts ...Option) *Ledger {
	l := &Ledger{
		ids:      ids,
		now:      time.Now,
		newTxID:  uuid.NewString,
		accounts: make(map[models.AccountID]*account),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateAccount opens an account for holderName. A positive initial balance
// is recorded as a deposit made at creation time.
func (l *Ledger) CreateAccount(holderName string, initialBalance decimal.Decimal) (models.AccountID, error) {
	name := strings.TrimSpace(holderName)
	if name == "" {
		return "", ErrInvalidName
	}
	if initialBalance.IsNegative() {
		return "", newError(InvalidAmount, "", "initial balance cannot be negative")
	}
	if outOfRange(initialBalance) {
		return "", newError(InvalidAmount, "", "initial balance is out of range")
	}

	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	id, err := l.unusedID()
	if err != nil {
		return "", err
	}

	now := l.now()
	a := &account{
		id:         id,
		holderName: name,
		createdAt:  now,
		balance:    initialBalance,
	}
	// The account is not reachable by anyone else yet, so a.mu is not needed.
	var entries []models.LedgerEntry
	if initialBalance.IsPositive() {
		entries = append(entries, a.record(models.Transaction{
			ID:           l.newTxID(),
			Kind:         models.Deposit,
			Amount:       initialBalance,
			BalanceAfter: initialBalance,
			Timestamp:    now,
		}))
	}
	l.accounts[id] = a
	l.notify(entries...)
	return id, nil
}

// unusedID must be called with mapMu held for writing.
func (l *Ledger) unusedID() (models.AccountID, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := l.ids.NewID()
		if _, taken := l.accounts[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Deposit adds a strictly positive amount and returns the new balance.
func (l *Ledger) Deposit(id models.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, newError(InvalidAmount, id, "deposit amount must be positive")
	}
	if outOfRange(amount) {
		return decimal.Zero, newError(InvalidAmount, id, "deposit amount is out of range")
	}
	a, err := l.lookup(id)
	if err != nil {
		return decimal.Zero, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance = a.balance.Add(amount)
	entry := a.record(models.Transaction{
		ID:           l.newTxID(),
		Kind:         models.Deposit,
		Amount:       amount,
		BalanceAfter: a.balance,
		Timestamp:    a.stamp(l.now()),
	})
	l.notify(entry)
	return a.balance, nil
}

// Withdraw removes a strictly positive amount no larger than the balance
// and returns the new balance.
func (l *Ledger) Withdraw(id models.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, newError(InvalidAmount, id, "withdrawal amount must be positive")
	}
	if outOfRange(amount) {
		return decimal.Zero, newError(InvalidAmount, id, "withdrawal amount is out of range")
	}
	a, err := l.lookup(id)
	if err != nil {
		return decimal.Zero, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if amount.GreaterThan(a.balance) {
		return decimal.Zero, newError(InsufficientFunds, id, "insufficient funds")
	}
	a.balance = a.balance.Sub(amount)
	entry := a.record(models.Transaction{
		ID:           l.newTxID(),
		Kind:         models.Withdrawal,
		Amount:       amount,
		BalanceAfter: a.balance,
		Timestamp:    a.stamp(l.now()),
	})
	l.notify(entry)
	return a.balance, nil
}

// Transfer moves amount from one account to another and returns both new
// balances. Both balance changes and both history records become visible
// together.
func (l *Ledger) Transfer(from, to models.AccountID, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if from == to {
		return decimal.Zero, decimal.Zero, newError(SameAccount, from, "cannot transfer to the same account")
	}
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, newError(InvalidAmount, from, "transfer amount must be positive")
	}
	if outOfRange(amount) {
		return decimal.Zero, decimal.Zero, newError(InvalidAmount, from, "transfer amount is out of range")
	}
	src, err := l.lookup(from)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	dst, err := l.lookup(to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// Lock in id order to avoid deadlocks between opposite transfers
	first, second := src, dst
	if to < from {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if amount.GreaterThan(src.balance) {
		return decimal.Zero, decimal.Zero, newError(InsufficientFunds, from, "insufficient funds")
	}

	// one timestamp for both sides, never earlier than either history
	at := dst.stamp(src.stamp(l.now()))
	transferID := l.newTxID()

	src.balance = src.balance.Sub(amount)
	dst.balance = dst.balance.Add(amount)

	debit := src.record(models.Transaction{
		ID:           l.newTxID(),
		Kind:         models.TransferOut,
		Amount:       amount,
		BalanceAfter: src.balance,
		Timestamp:    at,
		Counterparty: to,
		TransferID:   transferID,
	})
	credit := dst.record(models.Transaction{
		ID:           l.newTxID(),
		Kind:         models.TransferIn,
		Amount:       amount,
		BalanceAfter: dst.balance,
		Timestamp:    at,
		Counterparty: from,
		TransferID:   transferID,
	})
	l.notify(debit, credit)
	return src.balance, dst.balance, nil
}

// BalanceOf returns the current balance of one account.
func (l *Ledger) BalanceOf(id models.AccountID) (decimal.Decimal, error) {
	a, err := l.lookup(id)
	if err != nil {
		return decimal.Zero, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

// HistoryOf returns a copy of the account's records, oldest first.
func (l *Ledger) HistoryOf(id models.AccountID) ([]models.Transaction, error) {
	a, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.historyCopy(), nil
}

// AccountOf returns holder and balance of one account.
func (l *Ledger) AccountOf(id models.AccountID) (models.AccountSummary, error) {
	a, err := l.lookup(id)
	if err != nil {
		return models.AccountSummary{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary(), nil
}

// Statement returns the full account, history included, as one consistent copy.
func (l *Ledger) Statement(id models.AccountID) (models.Account, error) {
	a, err := l.lookup(id)
	if err != nil {
		return models.Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.summary()
	return models.Account{
		ID:         s.ID,
		HolderName: s.HolderName,
		Balance:    s.Balance,
		History:    a.historyCopy(),
		CreatedAt:  s.CreatedAt,
	}, nil
}

// ListAccounts returns every account ordered by id. All rows are taken at
// the same instant, so no half-applied transfer can show up.
func (l *Ledger) ListAccounts() []models.AccountSummary {
	var out []models.AccountSummary
	l.withAllLocked(func(accts []*account) {
		out = make([]models.AccountSummary, 0, len(accts))
		for _, a := range accts {
			out = append(out, a.summary())
		}
	})
	return out
}

// TotalBalance sums every balance from one consistent snapshot.
func (l *Ledger) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	l.withAllLocked(func(accts []*account) {
		for _, a := range accts {
			total = total.Add(a.balance)
		}
	})
	return total
}

func (l *Ledger) withAllLocked(fn func([]*account)) {
	l.mapMu.RLock()
	defer l.mapMu.RUnlock()

	accts := make([]*account, 0, len(l.accounts))
	for _, a := range l.accounts {
		accts = append(accts, a)
	}
	slices.SortFunc(accts, func(x, y *account) int { return cmp.Compare(x.id, y.id) })

	for _, a := range accts {
		a.mu.Lock()
	}
	defer func() {
		for i := len(accts) - 1; i >= 0; i-- {
			accts[i].mu.Unlock()
		}
	}()
	fn(accts)
}

func (l *Ledger) lookup(id models.AccountID) (*account, error) {
	l.mapMu.RLock()
	a, ok := l.accounts[id]
	l.mapMu.RUnlock()
	if !ok {
		return nil, newError(AccountNotFound, id, "account not found")
	}
	return a, nil
}

func (l *Ledger) notify(entries ...models.LedgerEntry) {
	if l.listener == nil || len(entries) == 0 {
		return
	}
	l.listener(entries...)
}
