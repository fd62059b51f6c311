package bank

import (
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

// Caixa Geral de Depósitos exports. All three are ';'-separated text with a
// metadata preamble above the header, dd-MM-yyyy dates and comma decimals.
// The card export splits amounts into Débito and Crédito and ends each page
// with a "Página n/m" row.

func cgdDeclaration(cols importer.ColumnMap) importer.Declaration {
	return importer.Declaration{
		FileKinds:  []tabular.Kind{tabular.KindDelimited},
		Required:   []importer.Field{importer.FieldDate, importer.FieldMerchant, importer.FieldAmount},
		Columns:    cols,
		Delimiter:  ';',
		DateFormat: "dd-MM-yyyy",
		Decimal:    importer.DecimalComma,
	}
}

func cgdRowIsValid(row tabular.Row, dateCol string) bool {
	return !isFooter(row, dateCol, "página")
}

// CGDConta is the current account "saldos e movimentos" export.
type CGDConta struct{}

func (CGDConta) ID() string   { return "cgd-conta" }
func (CGDConta) Name() string { return "CGD - Conta à ordem" }

func (CGDConta) Declaration() importer.Declaration {
	return cgdDeclaration(importer.ColumnMap{
		importer.FieldDate:     "Data mov.",
		importer.FieldMerchant: "Descrição",
		importer.FieldAmount:   "Montante",
	})
}

func (CGDConta) RowIsValid(row tabular.Row) bool { return cgdRowIsValid(row, "Data mov.") }

// CGDExtrato is the business statement export.
type CGDExtrato struct{}

func (CGDExtrato) ID() string   { return "cgd-extrato" }
func (CGDExtrato) Name() string { return "CGD - Extrato" }

func (CGDExtrato) Declaration() importer.Declaration {
	return cgdDeclaration(importer.ColumnMap{
		importer.FieldDate:     "Data mov.",
		importer.FieldMerchant: "Descrição",
		importer.FieldAmount:   "Movimento",
	})
}

func (CGDExtrato) RowIsValid(row tabular.Row) bool { return cgdRowIsValid(row, "Data mov.") }

// CGDCartao is the debit card movements export.
type CGDCartao struct{}

func (CGDCartao) ID() string   { return "cgd-cartao" }
func (CGDCartao) Name() string { return "CGD - Cartão" }

func (CGDCartao) Declaration() importer.Declaration {
	return cgdDeclaration(importer.ColumnMap{
		importer.FieldDate:     "Data",
		importer.FieldMerchant: "Descrição",
		importer.FieldAmount:   "Crédito|Débito",
	})
}

func (CGDCartao) RowIsValid(row tabular.Row) bool { return cgdRowIsValid(row, "Data") }
