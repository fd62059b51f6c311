// Package importer normalizes decoded statement rows into transaction import
// records and flags the ones already stored.
package importer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

// Field is a canonical transaction attribute a source column maps onto.
type Field string

const (
	FieldDate     Field = "date"
	FieldMerchant Field = "merchant"
	FieldAmount   Field = "amount"
	FieldNotes    Field = "notes"
)

// RequiredFields must be mapped before any row is read.
var RequiredFields = []Field{FieldDate, FieldMerchant, FieldAmount}

// Label is the human-facing field name used in messages.
func (f Field) Label() string {
	switch f {
	case FieldDate:
		return "Date"
	case FieldMerchant:
		return "Merchant"
	case FieldAmount:
		return "Amount"
	case FieldNotes:
		return "Notes"
	}

	return string(f)
}

// Valid reports whether f is one of the canonical fields.
func (f Field) Valid() bool {
	switch f {
	case FieldDate, FieldMerchant, FieldAmount, FieldNotes:
		return true
	}

	return false
}

// compositeSep joins the credit and debit columns of a split amount.
const compositeSep = "|"

// ColumnMap maps canonical fields to source column names. The amount field
// may name two columns as "<credit>|<debit>".
type ColumnMap map[Field]string

// SplitAmount returns the credit and debit columns of a composite amount
// mapping. ok is false for a single signed amount column.
func (m ColumnMap) SplitAmount() (credit, debit string, ok bool) {
	credit, debit, ok = strings.Cut(m[FieldAmount], compositeSep)
	if !ok {
		return "", "", false
	}

	return strings.TrimSpace(credit), strings.TrimSpace(debit), true
}

// SourceColumns lists every source column the mapping reads for fields.
func (m ColumnMap) SourceColumns(fields ...Field) []string {
	var cols []string

	for _, f := range fields {
		v := strings.TrimSpace(m[f])
		if v == "" {
			continue
		}

		if f == FieldAmount {
			if credit, debit, ok := m.SplitAmount(); ok {
				cols = append(cols, credit, debit)
				continue
			}
		}

		cols = append(cols, v)
	}

	return cols
}

// ColumnNotMappedError is returned before decoding when a required field has
// no source column.
type ColumnNotMappedError struct {
	Field Field
}

func (e *ColumnNotMappedError) Error() string {
	return fmt.Sprintf("%s column not mapped", e.Field.Label())
}

// DecimalConvention selects how ',' and '.' in amounts are read.
type DecimalConvention int

const (
	// DecimalAuto treats a comma followed by exactly two digits as the
	// decimal separator and any other comma as grouping.
	DecimalAuto DecimalConvention = iota
	// DecimalPoint: "1,234.56".
	DecimalPoint
	// DecimalComma: "1.234,56".
	DecimalComma
)

// Declaration is the static description of one bank's export format.
type Declaration struct {
	FileKinds  []tabular.Kind
	Required   []Field
	Columns    ColumnMap
	SkipRows   int
	Delimiter  rune
	DateFormat string
	Decimal    DecimalConvention
}

// Profile is a built-in bank export format. Each bank is its own type;
// the normalizer only ever sees the Config derived from it.
type Profile interface {
	ID() string
	Name() string
	Declaration() Declaration
	// RowIsValid drops footer and summary rows.
	RowIsValid(row tabular.Row) bool
}

// Config is the active mapping for one import.
type Config struct {
	// Source describes where the config came from, for logs.
	Source     string
	BankID     string
	Columns    ColumnMap
	DateFormat string
	Decimal    DecimalConvention
	// FileKinds restricts accepted files; empty accepts any kind.
	FileKinds []tabular.Kind
	// Required fields must have their source columns in the header row.
	Required  []Field
	SkipRows  int
	Delimiter rune
	RowFilter func(tabular.Row) bool
}

func ConfigFromProfile(p Profile) Config {
	d := p.Declaration()

	return Config{
		Source:     "bank:" + p.ID(),
		BankID:     p.ID(),
		Columns:    d.Columns,
		DateFormat: d.DateFormat,
		Decimal:    d.Decimal,
		FileKinds:  d.FileKinds,
		Required:   d.Required,
		SkipRows:   d.SkipRows,
		Delimiter:  d.Delimiter,
		RowFilter:  p.RowIsValid,
	}
}

// Validate fails when a required canonical field has no source column.
func (c Config) Validate() error {
	var errs []error

	for _, f := range RequiredFields {
		if strings.TrimSpace(c.Columns[f]) == "" {
			errs = append(errs, &ColumnNotMappedError{Field: f})
		}
	}

	if credit, debit, ok := c.Columns.SplitAmount(); ok && (credit == "" || debit == "") {
		errs = append(errs, &ColumnNotMappedError{Field: FieldAmount})
	}

	return errors.Join(errs...)
}

// Accepts reports whether files of kind may be imported with c.
func (c Config) Accepts(kind tabular.Kind) bool {
	return len(c.FileKinds) == 0 || slices.Contains(c.FileKinds, kind)
}

// DecodeOptions derives decoder options. When required columns are
// declared, rows before the first one containing all of them are skipped.
func (c Config) DecodeOptions() tabular.Options {
	opts := tabular.Options{SkipRows: c.SkipRows, Delimiter: c.Delimiter}

	required := c.Columns.SourceColumns(c.Required...)
	if len(required) > 0 {
		opts.HeaderProbe = func(cells []string) bool {
			for _, col := range required {
				if !slices.Contains(cells, col) {
					return false
				}
			}

			return true
		}
	}

	return opts
}

// Keep applies the row filter, if any.
func (c Config) Keep(row tabular.Row) bool {
	return c.RowFilter == nil || c.RowFilter(row)
}
