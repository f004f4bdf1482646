package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models/events"
)

// Bank is the part of service.BankService the shell drives.
type Bank interface {
	CreateAccount(ctx context.Context, holderName string, initialBalance decimal.Decimal) (models.AccountID, error)
	Deposit(ctx context.Context, id models.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, id models.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to models.AccountID, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error)
	Account(ctx context.Context, id models.AccountID) (models.AccountSummary, error)
	Statement(ctx context.Context, id models.AccountID) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.AccountSummary, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
}

// Feed gives access to recently published events, newest first.
type Feed interface {
	Recent(n int) []events.TransactionCompleted
}

const (
	choiceCreate = iota + 1
	choiceDeposit
	choiceWithdraw
	choiceBalance
	choiceHistory
	choiceTransfer
	choiceList
	choiceRecent
	choiceExit
)

const defaultRecentLimit = 10

// Shell is the interactive menu of the banking console.
type Shell struct {
	bank        Bank
	feed        Feed
	recentLimit int

	in      io.Reader
	out     io.Writer
	lines   chan string
	scanErr error
}

type Option func(*Shell)

// WithFeed enables the recent activity screen.
func WithFeed(feed Feed) Option {
	return func(s *Shell) { s.feed = feed }
}

// WithRecentLimit sets how many events the recent activity screen shows.
func WithRecentLimit(n int) Option {
	return func(s *Shell) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

func NewShell(bank Bank, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		bank:        bank,
		recentLimit: defaultRecentLimit,
		in:          in,
		out:         out,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run shows the menu until the user exits or the input ends. It returns
// ctx.Err() when ctx is cancelled first and the read error, if any, when the
// input fails.
func (s *Shell) Run(ctx context.Context) error {
	s.startReader(ctx)

	s.println("Welcome to the Mini Banking Application!")
	for {
		s.menu()
		line, ok := s.readLine(ctx, fmt.Sprintf("Enter your choice (1-%d): ", choiceExit))
		if !ok {
			return s.stopped(ctx)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || choice < choiceCreate || choice > choiceExit {
			s.printf("Invalid choice. Please enter a number between 1 and %d.\n", choiceExit)
			continue
		}
		if choice == choiceExit {
			s.println("\nThank you for using the Mini Banking Application!")
			return nil
		}
		if !s.dispatch(ctx, choice) {
			return s.stopped(ctx)
		}
	}
}

func (s *Shell) stopped(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.scanErr != nil {
		return fmt.Errorf("read input: %w", s.scanErr)
	}
	s.println("\nThank you for using the Mini Banking Application!")
	return nil
}

func (s *Shell) menu() {
	s.println("\n===== MINI BANKING APPLICATION =====")
	s.println("1. Create Account")
	s.println("2. Deposit Money")
	s.println("3. Withdraw Money")
	s.println("4. Check Balance")
	s.println("5. Transaction History")
	s.println("6. Transfer Money")
	s.println("7. List Accounts")
	s.println("8. Recent Activity")
	s.println("9. Exit")
}

// dispatch runs one screen. It reports false when input ran out midway.
func (s *Shell) dispatch(ctx context.Context, choice int) bool {
	switch choice {
	case choiceCreate:
		return s.createAccount(ctx)
	case choiceDeposit:
		return s.deposit(ctx)
	case choiceWithdraw:
		return s.withdraw(ctx)
	case choiceBalance:
		return s.checkBalance(ctx)
	case choiceHistory:
		return s.history(ctx)
	case choiceTransfer:
		return s.transfer(ctx)
	case choiceList:
		s.listAccounts(ctx)
	case choiceRecent:
		s.recentActivity()
	}
	return true
}

func (s *Shell) createAccount(ctx context.Context) bool {
	s.println("\n===== CREATE ACCOUNT =====")
	name, ok := s.readLine(ctx, "Enter account holder name: ")
	if !ok {
		return false
	}
	raw, ok := s.readLine(ctx, "Enter initial balance: $")
	if !ok {
		return false
	}
	initial, err := parseAmount(raw, true)
	if err != nil {
		s.fail(err)
		return true
	}

	id, err := s.bank.CreateAccount(ctx, name, initial)
	if err != nil {
		s.fail(err)
		return true
	}
	s.println("Account created successfully!")
	s.printf("Account Number: %s\n", id)
	s.printf("Holder Name: %s\n", strings.TrimSpace(name))
	s.printf("Initial Balance: %s\n", money(initial))
	return true
}

func (s *Shell) deposit(ctx context.Context) bool {
	s.println("\n===== DEPOSIT MONEY =====")
	id, amount, ok, valid := s.readAccountAndAmount(ctx, "Enter deposit amount: $")
	if !ok || !valid {
		return ok
	}
	balance, err := s.bank.Deposit(ctx, id, amount)
	if err != nil {
		s.fail(err)
		return true
	}
	s.println("Deposit successful!")
	s.printf("New Balance: %s\n", money(balance))
	return true
}

func (s *Shell) withdraw(ctx context.Context) bool {
	s.println("\n===== WITHDRAW MONEY =====")
	id, amount, ok, valid := s.readAccountAndAmount(ctx, "Enter withdrawal amount: $")
	if !ok || !valid {
		return ok
	}
	balance, err := s.bank.Withdraw(ctx, id, amount)
	if err != nil {
		s.fail(err)
		return true
	}
	s.println("Withdrawal successful!")
	s.printf("New Balance: %s\n", money(balance))
	return true
}

func (s *Shell) checkBalance(ctx context.Context) bool {
	s.println("\n===== CHECK BALANCE =====")
	raw, ok := s.readLine(ctx, "Enter account number: ")
	if !ok {
		return false
	}
	acct, err := s.bank.Account(ctx, accountID(raw))
	if err != nil {
		s.fail(err)
		return true
	}
	s.printf("Account Holder: %s\n", acct.HolderName)
	s.printf("Current Balance: %s\n", money(acct.Balance))
	return true
}

func (s *Shell) history(ctx context.Context) bool {
	s.println("\n===== TRANSACTION HISTORY =====")
	raw, ok := s.readLine(ctx, "Enter account number: ")
	if !ok {
		return false
	}
	stmt, err := s.bank.Statement(ctx, accountID(raw))
	if err != nil {
		s.fail(err)
		return true
	}
	s.printf("Account Holder: %s\n", stmt.HolderName)
	s.printf("Current Balance: %s\n", money(stmt.Balance))
	s.println("\nTransaction History:")
	if len(stmt.History) == 0 {
		s.println("No transactions found.")
		return true
	}
	writeHistory(s.out, stmt.History)
	return true
}

func (s *Shell) transfer(ctx context.Context) bool {
	s.println("\n===== TRANSFER MONEY =====")
	from, ok := s.readLine(ctx, "Enter source account number: ")
	if !ok {
		return false
	}
	to, ok := s.readLine(ctx, "Enter destination account number: ")
	if !ok {
		return false
	}
	raw, ok := s.readLine(ctx, "Enter transfer amount: $")
	if !ok {
		return false
	}
	amount, err := parseAmount(raw, false)
	if err != nil {
		s.fail(err)
		return true
	}

	fromBalance, toBalance, err := s.bank.Transfer(ctx, accountID(from), accountID(to), amount)
	if err != nil {
		s.fail(err)
		return true
	}
	s.println("Transfer successful!")
	s.printf("New Balance in Source Account: %s\n", money(fromBalance))
	s.printf("New Balance in Destination Account: %s\n", money(toBalance))
	return true
}

func (s *Shell) listAccounts(ctx context.Context) {
	s.println("\n===== ACCOUNTS =====")
	rows, err := s.bank.ListAccounts(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if len(rows) == 0 {
		s.println("No accounts yet.")
		return
	}
	writeAccounts(s.out, rows)

	total, err := s.bank.TotalBalance(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	s.printf("\n%d account(s), total balance %s\n", len(rows), money(total))
}

func (s *Shell) recentActivity() {
	s.println("\n===== RECENT ACTIVITY =====")
	if s.feed == nil {
		s.println("Recent activity is not kept while events are sent to Kafka.")
		return
	}
	evs := s.feed.Recent(s.recentLimit)
	if len(evs) == 0 {
		s.println("No activity yet.")
		return
	}
	writeActivity(s.out, evs)
}

// readAccountAndAmount reads an account number and an amount. ok is false
// when input ran out, valid is false when the amount was rejected.
func (s *Shell) readAccountAndAmount(ctx context.Context, amountPrompt string) (id models.AccountID, amount decimal.Decimal, ok, valid bool) {
	raw, ok := s.readLine(ctx, "Enter account number: ")
	if !ok {
		return "", decimal.Zero, false, false
	}
	rawAmount, ok := s.readLine(ctx, amountPrompt)
	if !ok {
		return "", decimal.Zero, false, false
	}
	amount, err := parseAmount(rawAmount, false)
	if err != nil {
		s.fail(err)
		return "", decimal.Zero, true, false
	}
	return accountID(raw), amount, true, true
}

func (s *Shell) startReader(ctx context.Context) {
	s.lines = make(chan string)
	go func() {
		defer close(s.lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case s.lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		s.scanErr = sc.Err()
	}()
}

func (s *Shell) readLine(ctx context.Context, prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	select {
	case line, ok := <-s.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

func (s *Shell) fail(err error) {
	s.printf("Error: %s\n", describe(err))
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func accountID(raw string) models.AccountID {
	return models.AccountID(strings.TrimSpace(raw))
}
