package models

// LedgerEntry is a history record together with the account it was appended to.
type LedgerEntry struct {
	AccountID   AccountID   // which account this entry belongs to
	Transaction Transaction // the appended record
}
