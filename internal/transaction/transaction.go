package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("transaction not found")
	// ErrConflict means the store rejected an insert on a constraint.
	ErrConflict = errors.New("transaction conflicts with stored data")
	// ErrAccountLink means linking inserted transactions to a bank account failed.
	ErrAccountLink = errors.New("linking transactions to account failed")
)

// Transaction is a stored money movement. Amount is signed: positive is an inflow.
type Transaction struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Date      time.Time
	Merchant  string
	Amount    decimal.Decimal
	Notes     *string
	BankID    *string
	AccountID *uuid.UUID // Loaded via JOIN
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Key returns the identity key of the transaction.
func (t *Transaction) Key() Key {
	return NewKey(t.Date, t.Merchant, t.Amount)
}

// AccountLink ties an inserted transaction to one of the owner's bank accounts.
type AccountLink struct {
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	OwnerID       uuid.UUID
}

// Key identifies a real-world money movement: calendar date, merchant
// (case and surrounding whitespace ignored) and exact amount. Notes, bank
// and account are deliberately not part of it, so re-importing a statement
// through a different profile is still caught.
type Key struct {
	Date     string
	Merchant string
	Amount   string
}

func NewKey(date time.Time, merchant string, amount decimal.Decimal) Key {
	return Key{
		Date:     date.Format(time.DateOnly),
		Merchant: strings.ToLower(strings.TrimSpace(merchant)),
		Amount:   amount.String(),
	}
}

// KeySet is a set of identity keys.
type KeySet map[Key]struct{}

func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}

	return s
}

func (s KeySet) Add(k Key) { s[k] = struct{}{} }

func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}
