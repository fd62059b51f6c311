package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a transaction row from the scanner.
// Expected column order: id, owner_id, date, merchant, amount, notes, bank_id, bank_account_id, created_at, deleted_at
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var (
		tx        transaction.Transaction
		notes     sql.NullString
		bankID    sql.NullString
		accountID uuid.NullUUID
	)

	if err := s.Scan(
		&tx.ID, &tx.OwnerID, &tx.Date, &tx.Merchant, &tx.Amount,
		&notes, &bankID, &accountID,
		&tx.CreatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	if notes.Valid {
		tx.Notes = &notes.String
	}

	if bankID.Valid {
		tx.BankID = &bankID.String
	}

	if accountID.Valid {
		tx.AccountID = &accountID.UUID
	}

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.owner_id, t.date, t.merchant, t.amount, t.notes, t.bank_id,
	ta.bank_account_id, t.created_at, t.deleted_at
`

const fromTransactions = `
	FROM transactions t
	LEFT JOIN transaction_accounts ta ON ta.transaction_id = t.id
`

func (s *Store) GetTransaction(ctx context.Context, owner, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.id = $1 AND t.owner_id = $2 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, owner uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.owner_id = $1 AND t.deleted_at IS NULL`

	args := []any{owner}
	argIdx := 2

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.BankID != nil {
		query += fmt.Sprintf(" AND t.bank_id = $%d", argIdx)

		args = append(args, *filter.BankID)
	}

	query += " ORDER BY t.date ASC, t.created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, owner, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, id, owner)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func existingKeys(ctx context.Context, q queryer, owner uuid.UUID, from, to time.Time) (transaction.KeySet, error) {
	query := `
		SELECT date, merchant, amount
		FROM transactions
		WHERE owner_id = $1 AND deleted_at IS NULL AND date >= $2 AND date <= $3
	`

	rows, err := q.QueryContext(ctx, query, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("selecting existing keys: %w", err)
	}
	defer rows.Close()

	keys := make(transaction.KeySet)

	for rows.Next() {
		var (
			date     time.Time
			merchant string
			amount   decimal.Decimal
		)

		if err := rows.Scan(&date, &merchant, &amount); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}

		keys.Add(transaction.NewKey(date, merchant, amount))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}

	return keys, nil
}

func (s *Store) ExistingKeys(ctx context.Context, owner uuid.UUID, from, to time.Time) (transaction.KeySet, error) {
	return existingKeys(ctx, s.db, owner, from, to)
}

func importLockKey(owner uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("import"))
	h.Write([]byte{0})
	h.Write(owner[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx    *sql.Tx
	owner uuid.UUID
}

// BeginImport opens a database transaction holding the owner's import lock
// until it ends.
func (s *Store) BeginImport(ctx context.Context, owner uuid.UUID) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(owner)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx, owner: owner}, nil
}

func (itx *importTx) Commit() error { return itx.tx.Commit() }

func (itx *importTx) Rollback() error {
	err := itx.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

func (itx *importTx) ExistingKeys(ctx context.Context, from, to time.Time) (transaction.KeySet, error) {
	return existingKeys(ctx, itx.tx, itx.owner, from, to)
}

// CreateTransactions inserts every row in a single multi-row INSERT. Ids are
// generated here so the returned slice lines up with params without relying
// on RETURNING order.
func (itx *importTx) CreateTransactions(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	const cols = 7

	var (
		sb   strings.Builder
		args = make([]any, 0, len(params)*cols)
		txs  = make([]*transaction.Transaction, len(params))
		now  = time.Now().UTC()
	)

	sb.WriteString(`INSERT INTO transactions (id, owner_id, date, merchant, amount, notes, bank_id, created_at) VALUES `)

	for i, p := range params {
		tx := &transaction.Transaction{
			ID:        uuid.New(),
			OwnerID:   itx.owner,
			Date:      p.Date,
			Merchant:  p.Merchant,
			Amount:    p.Amount,
			Notes:     p.Notes,
			BankID:    p.BankID,
			AccountID: p.AccountID,
			CreatedAt: now,
		}
		txs[i] = tx

		if i > 0 {
			sb.WriteString(", ")
		}

		base := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, NOW())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)

		args = append(args, tx.ID, tx.OwnerID, tx.Date, tx.Merchant, tx.Amount, tx.Notes, tx.BankID)
	}

	if _, err := itx.tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("creating transactions: %w", classify(err))
	}

	return txs, nil
}

func (itx *importTx) LinkAccounts(ctx context.Context, links []transaction.AccountLink) error {
	if len(links) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(links)*3)
	)

	sb.WriteString(`INSERT INTO transaction_accounts (transaction_id, bank_account_id, owner_id) VALUES `)

	for i, l := range links {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(&sb, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)

		args = append(args, l.TransactionID, l.AccountID, l.OwnerID)
	}

	if _, err := itx.tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("%w: %w", transaction.ErrAccountLink, classify(err))
	}

	return nil
}

// classify maps integrity constraint violations to transaction.ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s (%s)", transaction.ErrConflict, pgErr.Message, pgErr.ConstraintName)
	}

	return err
}
