// Package tabular turns uploaded statement files into header-keyed rows.
//
// It knows nothing about banks or transactions: a delimited-text file or the
// first sheet of a workbook goes in, a header list and a forward-only row
// cursor come out.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Kind is the container format of an uploaded file.
type Kind string

const (
	KindDelimited         Kind = "delimited"
	KindSpreadsheet       Kind = "spreadsheet"
	KindLegacySpreadsheet Kind = "legacy-spreadsheet"
)

var (
	ErrUnsupportedFileKind = errors.New("unsupported file kind")
	ErrEmptyFile           = errors.New("file contains no data rows")
	ErrNoHeaderRow         = errors.New("no header row found")
)

// DecodeError reports a malformed file.
type DecodeError struct {
	Kind  Kind
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s file: %v", e.Kind, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// KindFromFilename selects the decoder by file extension.
func KindFromFilename(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return KindDelimited, nil
	case ".xlsx", ".xlsm":
		return KindSpreadsheet, nil
	case ".xls":
		return KindLegacySpreadsheet, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFileKind, filepath.Ext(name))
}

// Options tune how the header row is located.
type Options struct {
	// SkipRows discards this many leading non-empty rows before looking for
	// the header.
	SkipRows int
	// Delimiter for delimited text. Zero sniffs ',', ';' or tab.
	Delimiter rune
	// HeaderProbe, when set, skips rows until one satisfies it; that row
	// becomes the header. Used for exports with a metadata preamble.
	HeaderProbe func(cells []string) bool
}

// source yields raw records. read returns io.EOF when exhausted.
type source interface {
	read() (cells []string, line int, err error)
	close() error
}

// Decode opens r as a file of the given kind and positions the returned
// Table just after the header row.
func Decode(r io.Reader, kind Kind, opts Options) (*Table, error) {
	var (
		src source
		err error
	)

	switch kind {
	case KindDelimited:
		src, err = newDelimitedSource(r, opts.Delimiter)
	case KindSpreadsheet:
		src, err = newSpreadsheetSource(r)
	case KindLegacySpreadsheet:
		src, err = newLegacySource(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileKind, kind)
	}

	if err != nil {
		return nil, err
	}

	t, err := newTable(src, kind, opts)
	if err != nil {
		_ = src.close()
		return nil, err
	}

	return t, nil
}

// Row is one data row keyed by header name.
type Row struct {
	// Line is the 1-based position of the row in the source file.
	Line    int
	Fields  map[string]string
	headers []string
}

// NewRow builds a row from parallel header and value slices. Missing values
// become empty strings.
func NewRow(line int, headers []string, values ...string) Row {
	fields := make(map[string]string, len(headers))

	for i, h := range headers {
		if i < len(values) {
			fields[h] = values[i]
		} else {
			fields[h] = ""
		}
	}

	return Row{Line: line, Fields: fields, headers: headers}
}

// Get returns the raw value of col, or "" when the column is absent.
func (r Row) Get(col string) string {
	return r.Fields[col]
}

// Has reports whether the row's file has a column named col.
func (r Row) Has(col string) bool {
	_, ok := r.Fields[col]
	return ok
}

// Headers returns the column names in file order.
func (r Row) Headers() []string {
	return r.headers
}

// Table is a lazy, forward-only cursor over the data rows of a file.
type Table struct {
	Headers []string

	kind    Kind
	src     source
	pending *Row
	cur     Row
	err     error
	done    bool
}

func newTable(src source, kind Kind, opts Options) (*Table, error) {
	t := &Table{src: src, kind: kind}

	header, err := t.findHeader(opts)
	if err != nil {
		return nil, err
	}

	t.Headers = normalizeHeaders(header)
	if len(t.Headers) == 0 {
		return nil, ErrNoHeaderRow
	}

	first, err := t.readRow()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}

	if err != nil {
		return nil, err
	}

	t.pending = &first

	return t, nil
}

func (t *Table) findHeader(opts Options) ([]string, error) {
	skipped := 0

	for {
		cells, _, err := t.src.read()
		if err == io.EOF {
			if skipped == 0 {
				return nil, ErrEmptyFile
			}

			return nil, ErrNoHeaderRow
		}

		if err != nil {
			return nil, t.decodeErr(err)
		}

		if blank(cells) {
			continue
		}

		if skipped < opts.SkipRows {
			skipped++
			continue
		}

		if opts.HeaderProbe != nil && !opts.HeaderProbe(trimAll(cells)) {
			skipped++
			continue
		}

		return cells, nil
	}
}

// readRow returns the next non-blank data row.
func (t *Table) readRow() (Row, error) {
	for {
		cells, line, err := t.src.read()
		if err == io.EOF {
			return Row{}, io.EOF
		}

		if err != nil {
			return Row{}, t.decodeErr(err)
		}

		if blank(cells) {
			continue
		}

		return NewRow(line, t.Headers, cells...), nil
	}
}

func (t *Table) decodeErr(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}

	return &DecodeError{Kind: t.kind, Cause: err}
}

// Next advances to the next row. It returns false when the rows are
// exhausted or a read failed; check Err afterwards.
func (t *Table) Next() bool {
	if t.done {
		return false
	}

	if t.pending != nil {
		t.cur = *t.pending
		t.pending = nil

		return true
	}

	row, err := t.readRow()
	if err != nil {
		t.done = true
		if err != io.EOF {
			t.err = err
		}

		return false
	}

	t.cur = row

	return true
}

// Row returns the row the cursor is positioned on.
func (t *Table) Row() Row {
	return t.cur
}

func (t *Table) Err() error {
	return t.err
}

func (t *Table) Close() error {
	t.done = true
	return t.src.close()
}

// Collect drains the cursor and closes the table.
func (t *Table) Collect() ([]Row, error) {
	defer t.Close()

	var rows []Row
	for t.Next() {
		rows = append(rows, t.Row())
	}

	if err := t.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}

// normalizeHeaders trims names, drops trailing unnamed columns, names inner
// unnamed columns by position and disambiguates repeated names.
func normalizeHeaders(cells []string) []string {
	cells = trimAll(cells)

	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}

	headers := make([]string, 0, end)
	seen := make(map[string]int, end)

	for i, name := range cells[:end] {
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}

		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}

		headers = append(headers, name)
	}

	return headers
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}

	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
