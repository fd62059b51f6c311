package importer

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// Status is the per-row outcome of an import.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusDuplicate Status = "duplicate"
)

const (
	MsgDateRequired     = "Date is required"
	MsgInvalidDate      = "Invalid date format"
	MsgAmountRequired   = "Amount is required"
	MsgInvalidAmount    = "Invalid amount format"
	MsgMerchantRequired = "Merchant is required"
	MsgDuplicate        = "Duplicate transaction found"
)

// Record is one normalized statement row. Only pending records are eligible
// for insertion; a record with errors is always in StatusError unless it was
// flagged as a duplicate.
type Record struct {
	Line      int
	Date      time.Time
	Merchant  string
	Amount    decimal.Decimal
	Notes     *string
	BankID    string
	AccountID *uuid.UUID
	Status    Status
	Errors    []string
}

func (r Record) Key() transaction.Key {
	return transaction.NewKey(r.Date, r.Merchant, r.Amount)
}

// clone returns a copy that shares no mutable state with r.
func (r Record) clone() Record {
	r.Errors = slices.Clone(r.Errors)

	if r.Notes != nil {
		n := *r.Notes
		r.Notes = &n
	}

	if r.AccountID != nil {
		a := *r.AccountID
		r.AccountID = &a
	}

	return r
}

// WithError returns a copy of r in StatusError with msg appended.
func (r Record) WithError(msg string) Record {
	r = r.clone()
	r.Status = StatusError
	r.Errors = append(r.Errors, msg)

	return r
}

// WithStatus returns a copy of r with the given status.
func (r Record) WithStatus(s Status) Record {
	r = r.clone()
	r.Status = s

	return r
}

// WithAccount returns a copy of r linked to account.
func (r Record) WithAccount(account uuid.UUID) Record {
	r = r.clone()
	r.AccountID = &account

	return r
}

// CreateParams converts a record into the row inserted for it.
func (r Record) CreateParams() transaction.CreateParams {
	p := transaction.CreateParams{
		Date:      r.Date,
		Merchant:  r.Merchant,
		Amount:    r.Amount,
		Notes:     r.Notes,
		AccountID: r.AccountID,
	}

	if r.BankID != "" {
		p.BankID = &r.BankID
	}

	return p
}

// Summary counts records per status.
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Success   int `json:"success"`
	Duplicate int `json:"duplicate"`
	Error     int `json:"error"`
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}

	for _, r := range records {
		switch r.Status {
		case StatusPending:
			s.Pending++
		case StatusSuccess:
			s.Success++
		case StatusDuplicate:
			s.Duplicate++
		case StatusError:
			s.Error++
		}
	}

	return s
}
