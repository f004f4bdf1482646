package cli

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/ledger"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models/events"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	cents      = 2
)

// plainNumber accepts an optional sign and digits with an optional fraction.
// Exponent notation is refused before it reaches the decimal parser.
var plainNumber = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

var (
	errEmptyAmount = errors.New("please enter an amount")
	errNotANumber  = errors.New("please enter a valid amount")
	errTooPrecise  = errors.New("amounts can have at most two decimal places")
)

// parseAmount reads a money amount typed by the user. A leading "$" is
// accepted. Sign is left to the ledger, which owns amount rules.
func parseAmount(raw string, emptyIsZero bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		if emptyIsZero {
			return decimal.Zero, nil
		}
		return decimal.Zero, errEmptyAmount
	}
	if !plainNumber.MatchString(s) {
		return decimal.Zero, errNotANumber
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errNotANumber
	}
	if !amount.Equal(amount.Round(cents)) {
		return decimal.Zero, errTooPrecise
	}
	return amount, nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(cents)
}

// describe turns an error into the sentence shown to the user.
func describe(err error) string {
	var lerr *ledger.Error
	if !errors.As(err, &lerr) {
		return upperFirst(err.Error()) + "."
	}
	switch lerr.Code {
	case ledger.InvalidName:
		return "Account holder name cannot be empty."
	case ledger.InvalidAmount:
		return upperFirst(lerr.Message) + "."
	case ledger.AccountNotFound:
		return fmt.Sprintf("Account %s does not exist.", lerr.AccountID)
	case ledger.InsufficientFunds:
		return fmt.Sprintf("Insufficient balance in account %s.", lerr.AccountID)
	case ledger.SameAccount:
		return "Cannot transfer to the same account."
	case ledger.IDExhausted:
		return "No account number is available right now, please try again."
	default:
		return lerr.Error()
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.Debug)
}

func writeHistory(w io.Writer, history []models.Transaction) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Type\t Amount\t Balance\t Date and Time\t Counterparty")
	for _, tx := range history {
		fmt.Fprintf(tw, "%s\t %s\t %s\t %s\t %s\n",
			tx.Kind.Label(),
			money(tx.Amount),
			money(tx.BalanceAfter),
			tx.Timestamp.Format(timeLayout),
			counterparty(tx.Kind, tx.Counterparty))
	}
	tw.Flush()
}

func writeAccounts(w io.Writer, rows []models.AccountSummary) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Account Number\t Holder Name\t Balance\t Opened")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t %s\t %s\t %s\n", r.ID, r.HolderName, money(r.Balance), r.CreatedAt.Format(timeLayout))
	}
	tw.Flush()
}

func writeActivity(w io.Writer, evs []events.TransactionCompleted) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Date and Time\t Account\t Type\t Amount\t Balance\t Counterparty")
	for _, ev := range evs {
		fmt.Fprintf(tw, "%s\t %s\t %s\t %s\t %s\t %s\n",
			ev.OccurredAt.Format(timeLayout),
			ev.AccountID,
			ev.Kind.Label(),
			money(ev.Amount),
			money(ev.Balance),
			counterparty(ev.Kind, ev.Counterparty))
	}
	tw.Flush()
}

func counterparty(kind models.TransactionKind, other models.AccountID) string {
	switch kind {
	case models.TransferOut:
		return "to " + other.String()
	case models.TransferIn:
		return "from " + other.String()
	default:
		return "-"
	}
}
