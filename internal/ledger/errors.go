package ledger

import (
	"errors"
	"fmt"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
)

type ErrorCode string

const (
	InvalidName       ErrorCode = "invalid_name"
	InvalidAmount     ErrorCode = "invalid_amount"
	AccountNotFound   ErrorCode = "account_not_found"
	InsufficientFunds ErrorCode = "insufficient_funds"
	SameAccount       ErrorCode = "same_account"
	IDExhausted       ErrorCode = "id_exhausted"
)

// Error is returned by every failing ledger operation. Callers match on Code
// (directly, through CodeOf, or with errors.Is against the Err* values).
type Error struct {
	Code      ErrorCode        `json:"code"`
	AccountID models.AccountID `json:"account_id,omitempty"`
	Message   string           `json:"message"`
}

func (e *Error) Error() string {
	if e.AccountID != "" {
		return fmt.Sprintf("%s: %s (account %s)", e.Code, e.Message, e.AccountID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any ledger error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first ledger error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newError(code ErrorCode, id models.AccountID, message string) *Error {
	return &Error{Code: code, AccountID: id, Message: message}
}

var (
	ErrInvalidName       = newError(InvalidName, "", "holder name must not be empty")
	ErrInvalidAmount     = newError(InvalidAmount, "", "invalid amount")
	ErrAccountNotFound   = newError(AccountNotFound, "", "account not found")
	ErrInsufficientFunds = newError(InsufficientFunds, "", "insufficient funds")
	ErrSameAccount       = newError(SameAccount, "", "cannot transfer to the same account")
	ErrIDExhausted       = newError(IDExhausted, "", "could not allocate an unused account id")
)
