package importer

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

// Normalize converts one decoded row into a record. It never fails: every
// problem becomes a message on the record and the record's status is
// StatusError. cfg must already have passed Validate.
func Normalize(row tabular.Row, cfg Config) Record {
	rec := Record{
		Line:   row.Line,
		BankID: cfg.BankID,
		Status: StatusPending,
	}

	if date, msg := normalizeDate(row, cfg); msg != "" {
		rec.Errors = append(rec.Errors, msg)
	} else {
		rec.Date = date
	}

	if amount, msg := normalizeAmount(row, cfg); msg != "" {
		rec.Errors = append(rec.Errors, msg)
	} else {
		rec.Amount = amount
	}

	rec.Merchant = strings.TrimSpace(row.Get(cfg.Columns[FieldMerchant]))
	if rec.Merchant == "" {
		rec.Errors = append(rec.Errors, MsgMerchantRequired)
	}

	if col := cfg.Columns[FieldNotes]; col != "" {
		if notes := strings.TrimSpace(row.Get(col)); notes != "" {
			rec.Notes = &notes
		}
	}

	if len(rec.Errors) > 0 {
		rec.Status = StatusError
	}

	return rec
}

func normalizeDate(row tabular.Row, cfg Config) (d time.Time, msg string) {
	raw := strings.TrimSpace(row.Get(cfg.Columns[FieldDate]))
	if raw == "" {
		raw = fallbackDate(row)
	}

	if raw == "" {
		return d, MsgDateRequired
	}

	d, err := ParseDate(raw, cfg.DateFormat)
	if err != nil {
		return d, MsgInvalidDate
	}

	return d, ""
}

// fallbackDate returns the first non-empty value of a column whose name
// looks like a date ("Date", "Data-valor", ...).
func fallbackDate(row tabular.Row) string {
	for _, h := range row.Headers() {
		name := strings.ToLower(h)
		if !strings.Contains(name, "date") && !strings.Contains(name, "data") {
			continue
		}

		if v := strings.TrimSpace(row.Get(h)); v != "" {
			return v
		}
	}

	return ""
}

func normalizeAmount(row tabular.Row, cfg Config) (decimal.Decimal, string) {
	credit, debit, split := cfg.Columns.SplitAmount()
	if !split {
		raw := strings.TrimSpace(row.Get(cfg.Columns[FieldAmount]))
		if raw == "" {
			return decimal.Zero, MsgAmountRequired
		}

		d, err := ParseAmount(raw, cfg.Decimal)
		if err != nil {
			return decimal.Zero, MsgInvalidAmount
		}

		return d, ""
	}

	rawCredit := strings.TrimSpace(row.Get(credit))
	rawDebit := strings.TrimSpace(row.Get(debit))

	if rawCredit == "" && rawDebit == "" {
		return decimal.Zero, MsgAmountRequired
	}

	total := decimal.Zero

	if rawCredit != "" {
		d, err := ParseAmount(rawCredit, cfg.Decimal)
		if err != nil {
			return decimal.Zero, MsgInvalidAmount
		}

		total = total.Add(d.Abs())
	}

	if rawDebit != "" {
		d, err := ParseAmount(rawDebit, cfg.Decimal)
		if err != nil {
			return decimal.Zero, MsgInvalidAmount
		}

		total = total.Sub(d.Abs())
	}

	return total, ""
}

// NormalizeAll normalizes rows concurrently on at most workers goroutines.
// The result is in input order. Rows rejected by the config's row filter
// are dropped.
func NormalizeAll(ctx context.Context, rows []tabular.Row, cfg Config, workers int) ([]Record, error) {
	kept := make([]tabular.Row, 0, len(rows))

	for _, row := range rows {
		if cfg.Keep(row) {
			kept = append(kept, row)
		}
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	records := make([]Record, len(kept))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, row := range kept {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			records[i] = Normalize(row, cfg)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}
