package executor_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/importer/executor"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// memStore keeps transactions in memory. Imports are serialized by a lock
// held from BeginImport until Commit or Rollback.
type memStore struct {
	importMu sync.Mutex

	mu    sync.Mutex
	rows  []*transaction.Transaction
	links []transaction.AccountLink

	createErr error
	linkErr   error
}

func (s *memStore) ExistingKeys(_ context.Context, owner uuid.UUID, from, to time.Time) (transaction.KeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(transaction.KeySet)

	for _, tx := range s.rows {
		if tx.OwnerID == owner && !tx.Date.Before(from) && !tx.Date.After(to) {
			keys.Add(tx.Key())
		}
	}

	return keys, nil
}

func (s *memStore) BeginImport(_ context.Context, owner uuid.UUID) (transaction.ImportTx, error) {
	s.importMu.Lock()
	return &memTx{store: s, owner: owner}, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rows)
}

type memTx struct {
	store *memStore
	owner uuid.UUID
	rows  []*transaction.Transaction
	links []transaction.AccountLink
	done  bool
}

func (t *memTx) ExistingKeys(ctx context.Context, from, to time.Time) (transaction.KeySet, error) {
	return t.store.ExistingKeys(ctx, t.owner, from, to)
}

func (t *memTx) CreateTransactions(_ context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if t.store.createErr != nil {
		return nil, t.store.createErr
	}

	for _, p := range params {
		t.rows = append(t.rows, &transaction.Transaction{
			ID:        uuid.New(),
			OwnerID:   t.owner,
			Date:      p.Date,
			Merchant:  p.Merchant,
			Amount:    p.Amount,
			Notes:     p.Notes,
			BankID:    p.BankID,
			AccountID: p.AccountID,
		})
	}

	return t.rows, nil
}

func (t *memTx) LinkAccounts(_ context.Context, links []transaction.AccountLink) error {
	if t.store.linkErr != nil && len(links) > 0 {
		return t.store.linkErr
	}

	t.links = append(t.links, links...)

	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx done")
	}

	t.store.mu.Lock()
	t.store.rows = append(t.store.rows, t.rows...)
	t.store.links = append(t.store.links, t.links...)
	t.store.mu.Unlock()

	t.done = true
	t.store.importMu.Unlock()

	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}

	t.done = true
	t.store.importMu.Unlock()

	return nil
}

type memMappings map[uuid.UUID]*mapping.Mapping

func (m memMappings) Get(_ context.Context, owner, id uuid.UUID) (*mapping.Mapping, error) {
	mp, ok := m[id]
	if !ok || mp.OwnerID != owner {
		return nil, mapping.ErrNotFound
	}

	return mp, nil
}

const statementCSV = "Date,Desc,Amount\n" +
	"15/03/2024,Coffee Shop,-4.50\n" +
	"16/03/2024,Salary,\"2000,00\"\n"

var statementMapping = &executor.CustomMapping{
	Columns: importer.ColumnMap{
		importer.FieldDate:     "Date",
		importer.FieldMerchant: "Desc",
		importer.FieldAmount:   "Amount",
	},
	DateFormat: "dd/MM/yyyy",
}

func newService(store *memStore, mappings memMappings) *executor.Service {
	return executor.NewService(store, bank.Default(), mappings, 2)
}

func preview(t *testing.T, svc *executor.Service, owner uuid.UUID, body string) *executor.Batch {
	t.Helper()

	batch, err := svc.Preview(context.Background(), owner,
		executor.Upload{Filename: "statement.csv", Body: strings.NewReader(body)},
		executor.Source{Custom: statementMapping})
	require.NoError(t, err)

	return batch
}

func TestPreviewAndCommit(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner := uuid.New()

	batch := preview(t, svc, owner, statementCSV)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, []string{"Date", "Desc", "Amount"}, batch.Headers)
	assert.Equal(t, importer.Summary{Total: 2, Pending: 2}, batch.Summary)

	assert.Equal(t, date(2024, 3, 15), batch.Records[0].Date)
	assert.Equal(t, "Coffee Shop", batch.Records[0].Merchant)
	assert.True(t, decimal.RequireFromString("-4.50").Equal(batch.Records[0].Amount))

	assert.Equal(t, date(2024, 3, 16), batch.Records[1].Date)
	assert.Equal(t, "Salary", batch.Records[1].Merchant)
	assert.True(t, decimal.RequireFromString("2000.00").Equal(batch.Records[1].Amount))

	result, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Inserted, 2)
	assert.Equal(t, importer.Summary{Total: 2, Success: 2}, result.Summary)
	assert.Equal(t, 2, store.count())

	// the preview batch itself is untouched
	assert.Equal(t, importer.StatusPending, batch.Records[0].Status)
}

func TestUnquotedCommaDecimal(t *testing.T) {
	svc := newService(&memStore{}, nil)

	// "2000,00" without quotes splits into two fields; the Amount column
	// holds "2000".
	batch := preview(t, svc, uuid.New(), "Date,Desc,Amount\n16/03/2024,Salary,2000,00\n")
	require.Len(t, batch.Records, 1)
	assert.True(t, decimal.RequireFromString("2000.00").Equal(batch.Records[0].Amount))
}

func TestCommit_Idempotent(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner := uuid.New()

	batch := preview(t, svc, owner, statementCSV)

	_, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{})
	require.NoError(t, err)

	again, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{})
	require.NoError(t, err)

	assert.Empty(t, again.Inserted)
	assert.Equal(t, importer.Summary{Total: 2, Duplicate: 2}, again.Summary)

	for _, r := range again.Records {
		assert.Equal(t, importer.StatusDuplicate, r.Status)
		assert.Contains(t, r.Errors, importer.MsgDuplicate)
	}

	assert.Equal(t, 2, store.count())
}

func TestPreview_DuplicatesAfterCommit(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner := uuid.New()

	first := preview(t, svc, owner, statementCSV)
	_, err := svc.Commit(context.Background(), owner, first.Records, executor.CommitOptions{})
	require.NoError(t, err)

	second := preview(t, svc, owner, statementCSV)
	assert.Equal(t, importer.Summary{Total: 2, Duplicate: 2}, second.Summary)

	result, err := svc.Commit(context.Background(), owner, second.Records, executor.CommitOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Inserted)
	assert.Equal(t, 2, store.count())
}

func TestPreview_OwnersAreIsolated(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)

	alice, bob := uuid.New(), uuid.New()

	batch := preview(t, svc, alice, statementCSV)
	_, err := svc.Commit(context.Background(), alice, batch.Records, executor.CommitOptions{})
	require.NoError(t, err)

	other := preview(t, svc, bob, statementCSV)
	assert.Equal(t, 2, other.Summary.Pending)
}

func TestCommit_SecondPassCatchesConcurrentImport(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner := uuid.New()

	a := preview(t, svc, owner, statementCSV)
	b := preview(t, svc, owner, statementCSV)

	_, err := svc.Commit(context.Background(), owner, a.Records, executor.CommitOptions{})
	require.NoError(t, err)

	result, err := svc.Commit(context.Background(), owner, b.Records, executor.CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Duplicate)
	assert.Equal(t, 2, store.count())
}

func TestCommit_ConcurrentCommitsInsertOnce(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner := uuid.New()

	batch := preview(t, svc, owner, statementCSV)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 2, store.count())
}

func TestCommit_SkipsErrorRows(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner := uuid.New()

	csv := "Date,Desc,Amount\n" +
		"15/03/2024,Coffee Shop,-4.50\n" +
		"16/03/2024,,10\n" +
		"17/03/2024,Books,abc\n"

	batch := preview(t, svc, owner, csv)
	require.Len(t, batch.Records, 3)

	assert.Equal(t, importer.StatusError, batch.Records[1].Status)
	assert.Equal(t, []string{importer.MsgMerchantRequired}, batch.Records[1].Errors)
	assert.Equal(t, []string{importer.MsgInvalidAmount}, batch.Records[2].Errors)

	result, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{})
	require.NoError(t, err)
	require.Len(t, result.Inserted, 1)
	assert.Equal(t, "Coffee Shop", result.Inserted[0].Merchant)
	assert.Equal(t, importer.Summary{Total: 3, Success: 1, Error: 2}, result.Summary)
}

func TestPreview_PreservesOrder(t *testing.T) {
	svc := newService(&memStore{}, nil)

	var sb strings.Builder
	sb.WriteString("Date,Desc,Amount\n")

	for i := range 300 {
		fmt.Fprintf(&sb, "15/03/2024,m%03d,%d\n", i, i)
	}

	batch := preview(t, svc, uuid.New(), sb.String())
	require.Len(t, batch.Records, 300)

	for i, r := range batch.Records {
		assert.Equal(t, fmt.Sprintf("m%03d", i), r.Merchant)
		assert.Equal(t, i+2, r.Line)
	}
}

func TestCommit_LinksAccount(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	owner, account := uuid.New(), uuid.New()

	batch := preview(t, svc, owner, statementCSV)

	result, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{AccountID: &account})
	require.NoError(t, err)
	require.Len(t, store.links, 2)

	for i, l := range store.links {
		assert.Equal(t, result.Inserted[i].ID, l.TransactionID)
		assert.Equal(t, account, l.AccountID)
		assert.Equal(t, owner, l.OwnerID)
	}
}

func TestCommit_Failures(t *testing.T) {
	type testCase struct {
		name    string
		store   *memStore
		wantErr error
	}

	tests := []testCase{
		{
			name:    "InsertConflict",
			store:   &memStore{createErr: fmt.Errorf("%w: duplicate key", transaction.ErrConflict)},
			wantErr: transaction.ErrConflict,
		},
		{
			name:    "LinkFailureRollsBack",
			store:   &memStore{linkErr: errors.New("fk violation")},
			wantErr: transaction.ErrAccountLink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.store, nil)
			owner, account := uuid.New(), uuid.New()

			batch := preview(t, svc, owner, statementCSV)

			_, err := svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{AccountID: &account})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, tt.store.count())

			// the lock was released
			tt.store.createErr, tt.store.linkErr = nil, nil
			_, err = svc.Commit(context.Background(), owner, batch.Records, executor.CommitOptions{})
			assert.NoError(t, err)
		})
	}
}

func TestCommit_RevalidatesPendingRecords(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)

	records := []importer.Record{
		{Merchant: "No date", Amount: decimal.NewFromInt(1), Status: importer.StatusPending},
		{Date: date(2024, 3, 15), Merchant: "  ", Amount: decimal.NewFromInt(1), Status: importer.StatusPending},
		{Date: date(2024, 3, 15), Merchant: "Ok", Amount: decimal.NewFromInt(1), Status: importer.StatusPending},
	}

	result, err := svc.Commit(context.Background(), uuid.New(), records, executor.CommitOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{importer.MsgDateRequired}, result.Records[0].Errors)
	assert.Equal(t, []string{importer.MsgMerchantRequired}, result.Records[1].Errors)
	assert.Equal(t, importer.StatusSuccess, result.Records[2].Status)
	assert.Equal(t, 1, store.count())
}

func TestCommit_PendingRecordWithErrorsIsNotInserted(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)

	records := []importer.Record{
		{
			Date:     date(2024, 3, 15),
			Merchant: "Coffee",
			Amount:   decimal.NewFromInt(-4),
			Status:   importer.StatusPending,
			Errors:   []string{importer.MsgInvalidAmount},
		},
	}

	result, err := svc.Commit(context.Background(), uuid.New(), records, executor.CommitOptions{})
	require.NoError(t, err)

	assert.Equal(t, importer.StatusError, result.Records[0].Status)
	assert.Equal(t, []string{importer.MsgInvalidAmount}, result.Records[0].Errors)
	assert.Empty(t, result.Inserted)
	assert.Zero(t, store.count())
}

func TestCommit_NothingPending(t *testing.T) {
	svc := newService(&memStore{}, nil)

	records := []importer.Record{{Status: importer.StatusError, Errors: []string{importer.MsgInvalidDate}}}

	result, err := svc.Commit(context.Background(), uuid.New(), records, executor.CommitOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Inserted)
	assert.Equal(t, importer.Summary{Total: 1, Error: 1}, result.Summary)
}

func TestPreview_Sources(t *testing.T) {
	owner := uuid.New()
	savedID := uuid.New()

	mappings := memMappings{
		savedID: {ID: savedID, OwnerID: owner, Name: "Mine", DateFormat: "dd/MM/yyyy", Columns: statementMapping.Columns},
	}

	svc := newService(&memStore{}, mappings)

	type testCase struct {
		name     string
		filename string
		body     string
		src      executor.Source
		wantErr  error
		verify   func(t *testing.T, b *executor.Batch)
	}

	tests := []testCase{
		{
			name:     "SavedMapping",
			filename: "s.csv",
			body:     statementCSV,
			src:      executor.Source{MappingID: &savedID},
			verify: func(t *testing.T, b *executor.Batch) {
				assert.Equal(t, "mapping:"+savedID.String(), b.Source)
				assert.Equal(t, 2, b.Summary.Pending)
			},
		},
		{
			name:     "BankProfile",
			filename: "conta.csv",
			body:     "Data mov.;Descrição;Montante\n30-01-2026;CAFÉ;-10,00\n",
			src:      executor.Source{BankID: "cgd-conta"},
			verify: func(t *testing.T, b *executor.Batch) {
				require.Len(t, b.Records, 1)
				assert.Equal(t, "cgd-conta", b.Records[0].BankID)
				assert.Equal(t, "-10", b.Records[0].Amount.String())
			},
		},
		{
			name:     "DateFormatOverride",
			filename: "s.csv",
			body:     "Date,Desc,Amount\n03/04/2024,X,1\n",
			src:      executor.Source{Custom: statementMapping, DateFormat: "MM/dd/yyyy"},
			verify: func(t *testing.T, b *executor.Batch) {
				assert.Equal(t, date(2024, 3, 4), b.Records[0].Date)
			},
		},
		{
			name:     "OtherOwnersMapping",
			filename: "s.csv",
			body:     statementCSV,
			src:      executor.Source{MappingID: new(uuid.New())},
			wantErr:  mapping.ErrNotFound,
		},
		{
			name:     "UnknownBank",
			filename: "s.csv",
			body:     statementCSV,
			src:      executor.Source{BankID: "nope"},
			wantErr:  bank.ErrUnknownProfile,
		},
		{
			name:     "NoSource",
			filename: "s.csv",
			body:     statementCSV,
			wantErr:  executor.ErrNoSource,
		},
		{
			name:     "UnsupportedExtension",
			filename: "s.pdf",
			body:     statementCSV,
			src:      executor.Source{Custom: statementMapping},
			wantErr:  tabular.ErrUnsupportedFileKind,
		},
		{
			name:     "ProfileRejectsKind",
			filename: "s.xlsx",
			body:     statementCSV,
			src:      executor.Source{BankID: "chase-checking"},
			wantErr:  executor.ErrFileRejected,
		},
		{
			name:     "EmptyFile",
			filename: "s.csv",
			body:     "",
			src:      executor.Source{Custom: statementMapping},
			wantErr:  tabular.ErrEmptyFile,
		},
		{
			name:     "HeaderOnly",
			filename: "s.csv",
			body:     "Date,Desc,Amount\n",
			src:      executor.Source{Custom: statementMapping},
			wantErr:  tabular.ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := svc.Preview(context.Background(), owner,
				executor.Upload{Filename: tt.filename, Body: strings.NewReader(tt.body)}, tt.src)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.verify(t, b)
		})
	}
}

func TestPreview_UnmappedFieldFailsFast(t *testing.T) {
	svc := newService(&memStore{}, nil)

	_, err := svc.Preview(context.Background(), uuid.New(),
		executor.Upload{Filename: "s.csv", Body: strings.NewReader(statementCSV)},
		executor.Source{Custom: &executor.CustomMapping{Columns: importer.ColumnMap{
			importer.FieldDate:   "Date",
			importer.FieldAmount: "Amount",
		}}})

	var notMapped *importer.ColumnNotMappedError
	require.True(t, errors.As(err, &notMapped))
	assert.Equal(t, "Merchant column not mapped", notMapped.Error())
}
