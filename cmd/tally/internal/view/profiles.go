package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

// ProfileTable lists bank profiles with the columns they read.
func ProfileTable(profiles []importer.Profile) string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		d := p.Declaration()

		kinds := make([]string, len(d.FileKinds))
		for i, k := range d.FileKinds {
			kinds[i] = string(k)
		}

		rows = append(rows, []string{
			p.ID(),
			p.Name(),
			strings.Join(kinds, ", "),
			d.DateFormat,
			strings.Join(d.Columns.SourceColumns(importer.RequiredFields...), " / "),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "FILES", "DATES", "COLUMNS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		}).
		Render()
}
