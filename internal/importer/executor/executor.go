// Package executor runs statement imports: preview decodes and annotates a
// file, commit persists the records that are still new.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var (
	ErrNoSource     = errors.New("a bank, saved mapping or custom mapping is required")
	ErrFileRejected = errors.New("file kind not accepted")
)

// TransactionStore is the part of the transaction service imports need.
type TransactionStore interface {
	ExistingKeys(ctx context.Context, owner uuid.UUID, from, to time.Time) (transaction.KeySet, error)
	BeginImport(ctx context.Context, owner uuid.UUID) (transaction.ImportTx, error)
}

type ProfileResolver interface {
	Resolve(id string) (importer.Profile, error)
}

type MappingLoader interface {
	Get(ctx context.Context, owner, id uuid.UUID) (*mapping.Mapping, error)
}

type Service struct {
	txs      TransactionStore
	profiles ProfileResolver
	mappings MappingLoader
	workers  int
}

func NewService(txs TransactionStore, profiles ProfileResolver, mappings MappingLoader, workers int) *Service {
	return &Service{
		txs:      txs,
		profiles: profiles,
		mappings: mappings,
		workers:  workers,
	}
}

type Upload struct {
	Filename string
	Body     io.Reader
}

// Source selects the column mapping for an import. Exactly one of BankID,
// MappingID or Custom is used, in that order of precedence.
type Source struct {
	BankID    string
	MappingID *uuid.UUID
	Custom    *CustomMapping
	// DateFormat overrides the date format of the selected mapping.
	DateFormat string
}

type CustomMapping struct {
	Columns    importer.ColumnMap
	DateFormat string
}

type Batch struct {
	Source  string
	Headers []string
	Records []importer.Record
	Summary importer.Summary
}

type CommitOptions struct {
	// AccountID links every inserted transaction to this account.
	AccountID *uuid.UUID
}

type CommitResult struct {
	Records  []importer.Record
	Inserted []*transaction.Transaction
	Summary  importer.Summary
}

// Config resolves src into the active import config and validates it.
func (s *Service) Config(ctx context.Context, owner uuid.UUID, src Source) (importer.Config, error) {
	var cfg importer.Config

	switch {
	case strings.TrimSpace(src.BankID) != "":
		p, err := s.profiles.Resolve(src.BankID)
		if err != nil {
			return cfg, err
		}

		cfg = importer.ConfigFromProfile(p)
	case src.MappingID != nil:
		m, err := s.mappings.Get(ctx, owner, *src.MappingID)
		if err != nil {
			return cfg, fmt.Errorf("loading mapping: %w", err)
		}

		cfg = m.Config()
	case src.Custom != nil:
		cfg = importer.Config{
			Source:     "custom",
			Columns:    src.Custom.Columns,
			DateFormat: src.Custom.DateFormat,
		}
	default:
		return cfg, ErrNoSource
	}

	if src.DateFormat != "" {
		cfg.DateFormat = src.DateFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Preview decodes and normalizes the upload and flags rows already stored
// for owner. Nothing is written. A file-level failure aborts the preview;
// row failures are reported on their records.
func (s *Service) Preview(ctx context.Context, owner uuid.UUID, up Upload, src Source) (*Batch, error) {
	cfg, err := s.Config(ctx, owner, src)
	if err != nil {
		return nil, err
	}

	kind, err := tabular.KindFromFilename(up.Filename)
	if err != nil {
		return nil, err
	}

	if !cfg.Accepts(kind) {
		return nil, fmt.Errorf("%w: %s does not read %s files", ErrFileRejected, cfg.Source, kind)
	}

	table, err := tabular.Decode(up.Body, kind, cfg.DecodeOptions())
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", up.Filename, err)
	}

	headers := table.Headers

	rows, err := table.Collect()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", up.Filename, err)
	}

	records, err := importer.NormalizeAll(ctx, rows, cfg, s.workers)
	if err != nil {
		return nil, fmt.Errorf("normalizing rows: %w", err)
	}

	if dates := importer.PendingDates(records); len(dates) > 0 {
		from, to := transaction.DateRange(dates)

		existing, err := s.txs.ExistingKeys(ctx, owner, from, to)
		if err != nil {
			return nil, err
		}

		records = importer.MarkDuplicates(records, existing)
	}

	batch := &Batch{
		Source:  cfg.Source,
		Headers: headers,
		Records: records,
		Summary: importer.Summarize(records),
	}

	slog.Info("import preview",
		"owner", owner,
		"source", cfg.Source,
		"file", up.Filename,
		"rows", batch.Summary.Total,
		"pending", batch.Summary.Pending,
		"duplicate", batch.Summary.Duplicate,
		"error", batch.Summary.Error,
	)

	return batch, nil
}

// Commit inserts the pending records for owner in one database transaction.
// Existing keys are fetched again under the owner's import lock, so rows
// stored since the preview are reported as duplicates and skipped. On any
// write failure nothing is persisted and the error is returned.
func (s *Service) Commit(ctx context.Context, owner uuid.UUID, records []importer.Record, opts CommitOptions) (*CommitResult, error) {
	records = prepare(records, opts)

	dates := importer.PendingDates(records)
	if len(dates) == 0 {
		return &CommitResult{Records: records, Summary: importer.Summarize(records)}, nil
	}

	itx, err := s.txs.BeginImport(ctx, owner)
	if err != nil {
		return nil, err
	}
	defer itx.Rollback()

	from, to := transaction.DateRange(dates)

	existing, err := itx.ExistingKeys(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading existing keys: %w", err)
	}

	records = importer.MarkDuplicates(records, existing)

	var (
		params []transaction.CreateParams
		slots  []int
	)

	for i, r := range records {
		if r.Status == importer.StatusPending {
			params = append(params, r.CreateParams())
			slots = append(slots, i)
		}
	}

	var inserted []*transaction.Transaction

	if len(params) > 0 {
		inserted, err = itx.CreateTransactions(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("inserting transactions: %w", err)
		}

		if len(inserted) != len(params) {
			return nil, fmt.Errorf("inserting transactions: stored %d rows for %d records", len(inserted), len(params))
		}

		if err := itx.LinkAccounts(ctx, transaction.LinksFor(owner, params, inserted)); err != nil {
			if !errors.Is(err, transaction.ErrAccountLink) {
				err = fmt.Errorf("%w: %w", transaction.ErrAccountLink, err)
			}

			return nil, fmt.Errorf("linking accounts: %w", err)
		}
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	for _, i := range slots {
		records[i] = records[i].WithStatus(importer.StatusSuccess)
	}

	result := &CommitResult{
		Records:  records,
		Inserted: inserted,
		Summary:  importer.Summarize(records),
	}

	slog.Info("import committed",
		"owner", owner,
		"inserted", len(inserted),
		"duplicate", result.Summary.Duplicate,
		"error", result.Summary.Error,
	)

	return result, nil
}

// prepare copies records, rejects pending records that can no longer be
// inserted and applies the commit-wide account.
func prepare(records []importer.Record, opts CommitOptions) []importer.Record {
	out := slices.Clone(records)

	for i, r := range out {
		if r.Status != importer.StatusPending {
			continue
		}

		r.Merchant = strings.TrimSpace(r.Merchant)

		switch {
		case len(r.Errors) > 0:
			r = r.WithStatus(importer.StatusError)
		case r.Date.IsZero():
			r = r.WithError(importer.MsgDateRequired)
		case r.Merchant == "":
			r = r.WithError(importer.MsgMerchantRequired)
		case opts.AccountID != nil:
			r = r.WithAccount(*opts.AccountID)
		}

		out[i] = r
	}

	return out
}
