package bank

import (
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

// BROU is the Banco República account movements export, a legacy .xls
// workbook with the account summary above the header and totals below the
// movements. Numeric cells come out with a dot decimal, text cells with a
// comma, so the separator is left to auto detection.
type BROU struct{}

func (BROU) ID() string   { return "brou" }
func (BROU) Name() string { return "BROU - Cuenta" }

func (BROU) Declaration() importer.Declaration {
	return importer.Declaration{
		FileKinds: []tabular.Kind{tabular.KindLegacySpreadsheet, tabular.KindSpreadsheet},
		Required:  []importer.Field{importer.FieldDate, importer.FieldMerchant, importer.FieldAmount},
		Columns: importer.ColumnMap{
			importer.FieldDate:     "Fecha",
			importer.FieldMerchant: "Descripción",
			importer.FieldAmount:   "Crédito|Débito",
			importer.FieldNotes:    "Documento",
		},
		DateFormat: "dd/MM/yyyy",
		Decimal:    importer.DecimalAuto,
	}
}

// RowIsValid drops the undated totals and balance rows under the movements.
func (BROU) RowIsValid(row tabular.Row) bool {
	if strings.TrimSpace(row.Get("Fecha")) != "" {
		return true
	}

	return !hasPrefixFold(row.Get("Descripción"), "total", "saldo")
}
