package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// spreadsheetSource streams the first sheet of an .xlsx workbook. Cells are
// read as formatted display values, never formulas.
type spreadsheetSource struct {
	file *excelize.File
	rows *excelize.Rows
	line int
}

func newSpreadsheetSource(r io.Reader) (*spreadsheetSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DecodeError{Kind: KindSpreadsheet, Cause: err}
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, &DecodeError{Kind: KindSpreadsheet, Cause: errors.New("workbook has no sheets")}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, &DecodeError{Kind: KindSpreadsheet, Cause: fmt.Errorf("open sheet %q: %w", sheets[0], err)}
	}

	return &spreadsheetSource{file: f, rows: rows}, nil
}

func (s *spreadsheetSource) read() ([]string, int, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, 0, err
		}

		return nil, 0, io.EOF
	}

	s.line++

	cells, err := s.rows.Columns()
	if err != nil {
		return nil, 0, fmt.Errorf("row %d: %w", s.line, err)
	}

	return cells, s.line, nil
}

func (s *spreadsheetSource) close() error {
	if err := s.rows.Close(); err != nil {
		_ = s.file.Close()
		return err
	}

	return s.file.Close()
}

// legacySource walks the first sheet of a BIFF (.xls) workbook.
type legacySource struct {
	sheet  *xls.WorkSheet
	next   int
	maxRow int
}

func newLegacySource(r io.Reader) (*legacySource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Kind: KindLegacySpreadsheet, Cause: err}
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &DecodeError{Kind: KindLegacySpreadsheet, Cause: err}
	}

	if wb.NumSheets() == 0 {
		return nil, &DecodeError{Kind: KindLegacySpreadsheet, Cause: errors.New("workbook has no sheets")}
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &DecodeError{Kind: KindLegacySpreadsheet, Cause: errors.New("could not read first sheet")}
	}

	return &legacySource{sheet: sheet, maxRow: int(sheet.MaxRow)}, nil
}

func (s *legacySource) read() ([]string, int, error) {
	for s.next <= s.maxRow {
		i := s.next
		s.next++

		row := s.sheet.Row(i)
		if row == nil {
			continue
		}

		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}

		return cells, i + 1, nil
	}

	return nil, 0, io.EOF
}

func (s *legacySource) close() error { return nil }
