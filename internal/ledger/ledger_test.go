package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/idgen"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(opts ...Option) *Ledger {
	return New(idgen.NewSequence(idgen.DefaultStart), opts...)
}

func mustCreate(t *testing.T, l *Ledger, name, initial string) models.AccountID {
	t.Helper()
	id, err := l.CreateAccount(name, d(initial))
	require.NoError(t, err)
	return id
}

func requireBalance(t *testing.T, l *Ledger, id models.AccountID, want string) {
	t.Helper()
	got, err := l.BalanceOf(id)
	require.NoError(t, err)
	assert.True(t, got.Equal(d(want)), "balance of %s = %s, want %s", id, got, want)
}

func TestCreateAccount(t *testing.T) {
	l := newTestLedger()

	withMoney := mustCreate(t, l, "  Alice  ", "100.00")
	empty := mustCreate(t, l, "Bob", "0")
	assert.NotEqual(t, withMoney, empty)

	requireBalance(t, l, withMoney, "100")
	requireBalance(t, l, empty, "0")

	hist, err := l.HistoryOf(withMoney)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.Deposit, hist[0].Kind)
	assert.True(t, hist[0].Amount.Equal(d("100")))

	hist, err = l.HistoryOf(empty)
	require.NoError(t, err)
	assert.Empty(t, hist)

	info, err := l.AccountOf(withMoney)
	require.NoError(t, err)
	assert.Equal(t, "Alice", info.HolderName)
}

func TestCreateAccount_InitialDepositUsesCreationTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	l := newTestLedger(WithClock(func() time.Time { return at }))

	id := mustCreate(t, l, "Alice", "5")

	stmt, err := l.Statement(id)
	require.NoError(t, err)
	assert.Equal(t, at, stmt.CreatedAt)
	require.Len(t, stmt.History, 1)
	assert.Equal(t, at, stmt.History[0].Timestamp)
}

func TestCreateAccount_Invalid(t *testing.T) {
	l := newTestLedger()

	tests := []struct {
		name    string
		holder  string
		initial string
		want    error
	}{
		{name: "empty name", holder: "", initial: "10", want: ErrInvalidName},
		{name: "whitespace name", holder: " \t ", initial: "10", want: ErrInvalidName},
		{name: "negative balance", holder: "Alice", initial: "-0.01", want: ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := l.CreateAccount(tt.holder, d(tt.initial))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, id)
		})
	}
	assert.Empty(t, l.ListAccounts())
}

type repeatingIDs struct {
	ids []models.AccountID
	i   int
}

func (r *repeatingIDs) NewID() models.AccountID {
	id := r.ids[r.i%len(r.ids)]
	r.i++
	return id
}

func TestCreateAccount_SkipsTakenIDs(t *testing.T) {
	l := New(&repeatingIDs{ids: []models.AccountID{"1", "1", "2"}})

	first := mustCreate(t, l, "A", "0")
	second := mustCreate(t, l, "B", "0")

	assert.Equal(t, models.AccountID("1"), first)
	assert.Equal(t, models.AccountID("2"), second)
}

func TestCreateAccount_IDExhausted(t *testing.T) {
	l := New(&repeatingIDs{ids: []models.AccountID{"1"}})
	mustCreate(t, l, "A", "0")

	_, err := l.CreateAccount("B", d("0"))
	assert.ErrorIs(t, err, ErrIDExhausted)
	assert.Len(t, l.ListAccounts(), 1)
}

func TestDepositWithdraw(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "Alice", "100.00")

	bal, err := l.Withdraw(id, d("30.00"))
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("70")))

	bal, err = l.Deposit(id, d("50.00"))
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("120")))

	hist, err := l.HistoryOf(id)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, []models.TransactionKind{models.Deposit, models.Withdrawal, models.Deposit},
		[]models.TransactionKind{hist[0].Kind, hist[1].Kind, hist[2].Kind})
	assert.True(t, hist[1].BalanceAfter.Equal(d("70")))
	assert.True(t, hist[2].BalanceAfter.Equal(d("120")))
}

func TestDeposit_NoFloatDrift(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "Alice", "0")

	for i := 0; i < 10; i++ {
		_, err := l.Deposit(id, d("0.10"))
		require.NoError(t, err)
	}
	requireBalance(t, l, id, "1.00")
}

func TestDepositWithdraw_InvalidAmount(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "Alice", "10")

	for _, amt := range []string{"0", "-1"} {
		_, err := l.Deposit(id, d(amt))
		assert.ErrorIs(t, err, ErrInvalidAmount, "deposit %s", amt)
		_, err = l.Withdraw(id, d(amt))
		assert.ErrorIs(t, err, ErrInvalidAmount, "withdraw %s", amt)
	}

	requireBalance(t, l, id, "10")
	hist, _ := l.HistoryOf(id)
	assert.Len(t, hist, 1)
}

func TestAmountOutOfRange(t *testing.T) {
	l := newTestLedger()
	a := mustCreate(t, l, "A", "1.50")
	b := mustCreate(t, l, "B", "0")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, amt := range []string{"1e900000000", "1e-900000000", "1e19", "1e-19"} {
			_, err := l.Deposit(a, d(amt))
			assert.ErrorIs(t, err, ErrInvalidAmount, "deposit %s", amt)
			_, err = l.Withdraw(a, d(amt))
			assert.ErrorIs(t, err, ErrInvalidAmount, "withdraw %s", amt)
			_, _, err = l.Transfer(a, b, d(amt))
			assert.ErrorIs(t, err, ErrInvalidAmount, "transfer %s", amt)
			_, err = l.CreateAccount("C", d(amt))
			assert.ErrorIs(t, err, ErrInvalidAmount, "create %s", amt)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("out of range amount was not rejected in time")
	}

	requireBalance(t, l, a, "1.50")
	requireBalance(t, l, b, "0")
	assert.Len(t, l.ListAccounts(), 2)

	bal, err := l.Deposit(a, d("1e18"))
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("1000000000000000001.50")))
}

func TestUnknownAccount(t *testing.T) {
	l := newTestLedger()
	known := mustCreate(t, l, "Alice", "10")
	missing := models.AccountID("99999999")

	_, err := l.Deposit(missing, d("1"))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = l.Withdraw(missing, d("1"))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = l.BalanceOf(missing)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = l.HistoryOf(missing)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = l.AccountOf(missing)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = l.Statement(missing)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, _, err = l.Transfer(known, missing, d("1"))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, _, err = l.Transfer(missing, known, d("1"))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	requireBalance(t, l, known, "10")
}

func TestWithdraw_InsufficientFundsLeavesStateUntouched(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "Alice", "50")
	before, err := l.HistoryOf(id)
	require.NoError(t, err)

	_, err = l.Withdraw(id, d("50.01"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, InsufficientFunds, CodeOf(err))

	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, id, lerr.AccountID)

	requireBalance(t, l, id, "50")
	after, err := l.HistoryOf(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWithdraw_WholeBalance(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "Alice", "42.42")

	bal, err := l.Withdraw(id, d("42.42"))
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestTransfer(t *testing.T) {
	l := newTestLedger()
	x := mustCreate(t, l, "X", "0")
	y := mustCreate(t, l, "Y", "0")

	_, err := l.Deposit(x, d("100"))
	require.NoError(t, err)

	fromBal, toBal, err := l.Transfer(x, y, d("40"))
	require.NoError(t, err)
	assert.True(t, fromBal.Equal(d("60")))
	assert.True(t, toBal.Equal(d("40")))

	_, err = l.Withdraw(y, d("100"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	requireBalance(t, l, x, "60")
	requireBalance(t, l, y, "40")

	xh, _ := l.HistoryOf(x)
	yh, _ := l.HistoryOf(y)
	require.Len(t, xh, 2)
	require.Len(t, yh, 1)

	out, in := xh[1], yh[0]
	assert.Equal(t, models.TransferOut, out.Kind)
	assert.Equal(t, models.TransferIn, in.Kind)
	assert.Equal(t, y, out.Counterparty)
	assert.Equal(t, x, in.Counterparty)
	assert.NotEmpty(t, out.TransferID)
	assert.Equal(t, out.TransferID, in.TransferID)
	assert.NotEqual(t, out.ID, in.ID)
	assert.Equal(t, out.Timestamp, in.Timestamp)
}

func TestTransfer_ZeroSum(t *testing.T) {
	l := newTestLedger()
	a := mustCreate(t, l, "A", "250.75")
	b := mustCreate(t, l, "B", "10.25")
	total := l.TotalBalance()

	_, _, err := l.Transfer(a, b, d("250.75"))
	require.NoError(t, err)

	requireBalance(t, l, a, "0")
	requireBalance(t, l, b, "261")
	assert.True(t, total.Equal(l.TotalBalance()))
}

func TestTransfer_SameAccountAlwaysFails(t *testing.T) {
	l := newTestLedger()
	a := mustCreate(t, l, "A", "10")

	for _, amt := range []string{"1", "0", "-5", "1000"} {
		_, _, err := l.Transfer(a, a, d(amt))
		assert.ErrorIs(t, err, ErrSameAccount, "amount %s", amt)
	}
	_, _, err := l.Transfer("nope", "nope", d("1"))
	assert.ErrorIs(t, err, ErrSameAccount)

	requireBalance(t, l, a, "10")
}

func TestTransfer_Failures(t *testing.T) {
	l := newTestLedger()
	a := mustCreate(t, l, "A", "10")
	b := mustCreate(t, l, "B", "5")

	_, _, err := l.Transfer(a, b, d("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = l.Transfer(a, b, d("-3"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = l.Transfer(a, b, d("10.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	requireBalance(t, l, a, "10")
	requireBalance(t, l, b, "5")
	ah, _ := l.HistoryOf(a)
	bh, _ := l.HistoryOf(b)
	assert.Len(t, ah, 1)
	assert.Len(t, bh, 1)
}

func TestHistoryOf_SnapshotIsNotAffectedByLaterChanges(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "Alice", "10")

	snap, err := l.HistoryOf(id)
	require.NoError(t, err)
	snap[0].Amount = d("999")

	_, err = l.Deposit(id, d("1"))
	require.NoError(t, err)

	assert.Len(t, snap, 1)
	fresh, _ := l.HistoryOf(id)
	require.Len(t, fresh, 2)
	assert.True(t, fresh[0].Amount.Equal(d("10")))
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(time.Minute), base.Add(-time.Hour), base.Add(-2 * time.Hour)}
	i := 0
	clock := func() time.Time {
		now := ticks[i%len(ticks)]
		i++
		return now
	}
	l := newTestLedger(WithClock(clock))

	a := mustCreate(t, l, "A", "10") // base
	b := mustCreate(t, l, "B", "0")  // base+1m
	_, err := l.Deposit(a, d("1"))   // base-1h
	require.NoError(t, err)
	_, _, err = l.Transfer(a, b, d("2")) // base-2h
	require.NoError(t, err)

	hist, _ := l.HistoryOf(a)
	require.Len(t, hist, 3)
	for j := 1; j < len(hist); j++ {
		assert.False(t, hist[j].Timestamp.Before(hist[j-1].Timestamp), "record %d earlier than %d", j, j-1)
	}
	bh, _ := l.HistoryOf(b)
	require.Len(t, bh, 1)
	assert.Equal(t, hist[2].Timestamp, bh[0].Timestamp)
	assert.Equal(t, base.Add(time.Minute), bh[0].Timestamp)
}

func TestListAccounts_SortedByID(t *testing.T) {
	l := newTestLedger()
	ids := []models.AccountID{
		mustCreate(t, l, "A", "1"),
		mustCreate(t, l, "B", "2"),
		mustCreate(t, l, "C", "3"),
	}

	rows := l.ListAccounts()
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, ids[i], row.ID)
	}
	assert.Equal(t, "B", rows[1].HolderName)
	assert.True(t, rows[2].Balance.Equal(d("3")))
	assert.True(t, l.TotalBalance().Equal(d("6")))
}

func TestListener_ReceivesAppendedRecords(t *testing.T) {
	var (
		mu  sync.Mutex
		got []models.LedgerEntry
	)
	l := newTestLedger(WithListener(func(entries ...models.LedgerEntry) {
		mu.Lock()
		got = append(got, entries...)
		mu.Unlock()
	}))

	a := mustCreate(t, l, "A", "10")
	b := mustCreate(t, l, "B", "0")
	_, _ = l.Withdraw(a, d("100")) // fails, nothing recorded
	_, _, err := l.Transfer(a, b, d("4"))
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, a, got[0].AccountID)
	assert.Equal(t, models.Deposit, got[0].Transaction.Kind)
	assert.Equal(t, a, got[1].AccountID)
	assert.Equal(t, models.TransferOut, got[1].Transaction.Kind)
	assert.Equal(t, b, got[2].AccountID)
	assert.Equal(t, models.TransferIn, got[2].Transaction.Kind)
}

func TestConcurrentDeposits_NoLostUpdates(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "A", "0")

	const n = 500
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.Deposit(id, decimal.NewFromInt(1)); err != nil {
				t.Errorf("deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	requireBalance(t, l, id, fmt.Sprint(n))
	hist, _ := l.HistoryOf(id)
	assert.Len(t, hist, n)
}

func TestConcurrentWithdrawals_NeverNegative(t *testing.T) {
	l := newTestLedger()
	id := mustCreate(t, l, "A", "100")

	const n = 300
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := l.Withdraw(id, decimal.NewFromInt(1))
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("withdraw: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, ok)
	requireBalance(t, l, id, "0")
}

func TestConcurrentTransfers_NoDeadlockNoNegative(t *testing.T) {
	l := newTestLedger()
	a := mustCreate(t, l, "A", "50")
	b := mustCreate(t, l, "B", "50")

	const n = 400
	var wg sync.WaitGroup
	wg.Add(3 * n)
	transfer := func(from, to models.AccountID) {
		defer wg.Done()
		_, _, err := l.Transfer(from, to, d("7"))
		if err != nil && !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("transfer %s->%s: %v", from, to, err)
		}
	}
	for i := 0; i < n; i++ {
		go transfer(a, b)
		go transfer(b, a)
		go func() {
			defer wg.Done()
			total := l.TotalBalance()
			if !total.Equal(d("100")) {
				t.Errorf("observed total %s mid-flight", total)
			}
			for _, row := range l.ListAccounts() {
				if row.Balance.IsNegative() {
					t.Errorf("negative balance on %s", row.ID)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("transfers deadlocked")
	}

	ab, _ := l.BalanceOf(a)
	bb, _ := l.BalanceOf(b)
	assert.False(t, ab.IsNegative())
	assert.False(t, bb.IsNegative())
	assert.True(t, ab.Add(bb).Equal(d("100")))
}

func TestConcurrentCreateAndList(t *testing.T) {
	l := newTestLedger()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.CreateAccount("holder", d("1")); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			rows := l.ListAccounts()
			sum := decimal.Zero
			for _, r := range rows {
				sum = sum.Add(r.Balance)
			}
			if !sum.Equal(decimal.NewFromInt(int64(len(rows)))) {
				t.Errorf("sum %s for %d rows", sum, len(rows))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, l.ListAccounts(), n)
}

func TestError_Format(t *testing.T) {
	err := newError(AccountNotFound, "00000001", "account not found")

	assert.Equal(t, "account_not_found: account not found (account 00000001)", err.Error())
	assert.Equal(t, "same_account: cannot transfer to the same account", ErrSameAccount.Error())
	assert.Equal(t, AccountNotFound, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
}
