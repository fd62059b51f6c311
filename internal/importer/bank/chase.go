package bank

import (
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

// ChaseChecking is the Chase checking account CSV download:
// Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
type ChaseChecking struct{}

func (ChaseChecking) ID() string   { return "chase-checking" }
func (ChaseChecking) Name() string { return "Chase - Checking" }

func (ChaseChecking) Declaration() importer.Declaration {
	return importer.Declaration{
		FileKinds: []tabular.Kind{tabular.KindDelimited},
		Required:  []importer.Field{importer.FieldDate, importer.FieldMerchant, importer.FieldAmount},
		Columns: importer.ColumnMap{
			importer.FieldDate:     "Posting Date",
			importer.FieldMerchant: "Description",
			importer.FieldAmount:   "Amount",
			importer.FieldNotes:    "Type",
		},
		Delimiter:  ',',
		DateFormat: "MM/dd/yyyy",
		Decimal:    importer.DecimalPoint,
	}
}

func (ChaseChecking) RowIsValid(tabular.Row) bool { return true }
