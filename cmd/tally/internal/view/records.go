package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gocarina/gocsv"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)
	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	statusStyles = map[importer.Status]lipgloss.Style{
		importer.StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		importer.StatusSuccess:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		importer.StatusDuplicate: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		importer.StatusError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

const statusColumn = 5

// StatusStyle returns the colour used for a record status.
func StatusStyle(s importer.Status) lipgloss.Style {
	if st, ok := statusStyles[s]; ok {
		return st
	}

	return lipgloss.NewStyle()
}

// RecordTable renders records as a bordered table with coloured statuses.
func RecordTable(records []importer.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Line),
			FormatDate(r.Date),
			r.Merchant,
			FormatAmount(r.Amount),
			deref(r.Notes),
			string(r.Status),
			strings.Join(r.Errors, "; "),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("LINE", "DATE", "MERCHANT", "AMOUNT", "NOTES", "STATUS", "ERRORS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			if col == statusColumn && row >= 0 && row < len(records) {
				return StatusStyle(records[row].Status).Padding(0, 1)
			}

			return cellStyle
		})

	return t.Render()
}

// SummaryLine renders the per-status counts.
func SummaryLine(s importer.Summary) string {
	return fmt.Sprintf("%d rows: %s, %s, %s",
		s.Total,
		StatusStyle(importer.StatusPending).Render(fmt.Sprintf("%d pending", s.Pending)),
		StatusStyle(importer.StatusDuplicate).Render(fmt.Sprintf("%d duplicate", s.Duplicate)),
		StatusStyle(importer.StatusError).Render(fmt.Sprintf("%d error", s.Error)),
	)
}

type csvRecord struct {
	Line     int    `csv:"line"`
	Date     string `csv:"date"`
	Merchant string `csv:"merchant"`
	Amount   string `csv:"amount"`
	Notes    string `csv:"notes"`
	Status   string `csv:"status"`
	Errors   string `csv:"errors"`
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []importer.Record) error {
	out := make([]csvRecord, 0, len(records))
	for _, r := range records {
		out = append(out, csvRecord{
			Line:     r.Line,
			Date:     FormatDate(r.Date),
			Merchant: r.Merchant,
			Amount:   r.Amount.String(),
			Notes:    deref(r.Notes),
			Status:   string(r.Status),
			Errors:   strings.Join(r.Errors, "; "),
		})
	}

	if err := gocsv.Marshal(out, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return nil
}
