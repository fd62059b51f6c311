package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetTransaction(ctx context.Context, owner, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]*Transaction, error)
	DeleteTransaction(ctx context.Context, owner, id uuid.UUID) error

	ExistingKeys(ctx context.Context, owner uuid.UUID, from, to time.Time) (KeySet, error)
	BeginImport(ctx context.Context, owner uuid.UUID) (ImportTx, error)
}

// ImportTx is one atomic import for a single owner. Concurrent imports for
// the same owner are serialized until Commit or Rollback.
type ImportTx interface {
	ExistingKeys(ctx context.Context, from, to time.Time) (KeySet, error)
	// CreateTransactions inserts params as one write and returns the stored
	// rows in the same order.
	CreateTransactions(ctx context.Context, params []CreateParams) ([]*Transaction, error)
	LinkAccounts(ctx context.Context, links []AccountLink) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Date      time.Time
	Merchant  string
	Amount    decimal.Decimal
	Notes     *string
	BankID    *string
	AccountID *uuid.UUID
}

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	BankID    *string
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, owner, id)
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, owner, filter)
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, owner, id)
}

// ExistingKeys returns the identity keys of the owner's stored transactions
// dated within [from, to].
func (s *Service) ExistingKeys(ctx context.Context, owner uuid.UUID, from, to time.Time) (KeySet, error) {
	keys, err := s.repo.ExistingKeys(ctx, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading existing keys: %w", err)
	}

	return keys, nil
}

func (s *Service) BeginImport(ctx context.Context, owner uuid.UUID) (ImportTx, error) {
	itx, err := s.repo.BeginImport(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}

	return itx, nil
}

// DateRange returns the earliest and latest of dates.
func DateRange(dates []time.Time) (time.Time, time.Time) {
	if len(dates) == 0 {
		return time.Time{}, time.Time{}
	}

	minDate := dates[0]
	maxDate := dates[0]

	for _, d := range dates[1:] {
		if d.Before(minDate) {
			minDate = d
		}

		if d.After(maxDate) {
			maxDate = d
		}
	}

	return minDate, maxDate
}

// LinksFor builds account links for the inserted transactions whose params
// named an account. txs[i] must be the row inserted for params[i].
func LinksFor(owner uuid.UUID, params []CreateParams, txs []*Transaction) []AccountLink {
	var links []AccountLink

	for i, p := range params {
		if p.AccountID == nil || i >= len(txs) {
			continue
		}

		links = append(links, AccountLink{
			TransactionID: txs[i].ID,
			AccountID:     *p.AccountID,
			OwnerID:       owner,
		})
	}

	return links
}
