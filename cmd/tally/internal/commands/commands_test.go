package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/cmd/tally/internal/commands"
)

func runTally(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := commands.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestBanks(t *testing.T) {
	out, err := runTally(t, "banks")
	require.NoError(t, err)

	for _, id := range []string{"brou", "cgd-cartao", "cgd-conta", "cgd-extrato", "chase-checking"} {
		assert.Contains(t, out, id)
	}
}

func TestPreview_Bank(t *testing.T) {
	statement := writeFile(t, "chase.csv",
		"Details,Posting Date,Description,Amount,Type,Balance\n"+
			"DEBIT,01/15/2024,COFFEE SHOP,-4.25,DEBIT_CARD,100.00\n"+
			"CREDIT,01/16/2024,PAYROLL,1500.00,ACH_CREDIT,1600.00\n")

	out, err := runTally(t, "preview", statement, "--bank", "chase-checking", "--format", "csv")
	require.NoError(t, err)

	want := "line,date,merchant,amount,notes,status,errors\n" +
		"2,2024-01-15,COFFEE SHOP,-4.25,DEBIT_CARD,pending,\n" +
		"3,2024-01-16,PAYROLL,1500,ACH_CREDIT,pending,\n"
	assert.Equal(t, want, out)
}

func TestPreview_MappingFile(t *testing.T) {
	mapping := writeFile(t, "revolut.yaml", `
name: Revolut
date_format: yyyy-MM-dd
columns:
  date: Completed Date
  merchant: Description
  amount: Amount
`)
	statement := writeFile(t, "revolut.csv",
		"Type,Completed Date,Description,Amount\n"+
			"CARD_PAYMENT,2024-02-03,Bakery,-2.10\n"+
			"CARD_PAYMENT,,Bakery,-2.10\n")

	out, err := runTally(t, "preview", statement, "--mapping", mapping)
	require.NoError(t, err)

	assert.Contains(t, out, "Bakery")
	assert.Contains(t, out, "Date is required")
	assert.Contains(t, out, "2 rows")
}

func TestPreview_Errors(t *testing.T) {
	statement := writeFile(t, "s.csv", "Date,Payee,Amount\n2024-01-01,x,1\n")
	badMapping := writeFile(t, "bad.yaml", "columns:\n  date: Date\n  colour: Red\n")

	type testCase struct {
		name    string
		args    []string
		wantErr string
	}

	tests := []testCase{
		{name: "NoSource", args: []string{"preview", statement}, wantErr: "at least one of the flags"},
		{name: "BothSources", args: []string{"preview", statement, "--bank", "cgd-conta", "--mapping", badMapping}, wantErr: "were all set"},
		{name: "UnknownBank", args: []string{"preview", statement, "--bank", "nope"}, wantErr: "unknown bank profile"},
		{name: "UnknownField", args: []string{"preview", statement, "--mapping", badMapping}, wantErr: `unknown field "colour"`},
		{name: "MissingFile", args: []string{"preview", "/nonexistent.csv", "--bank", "cgd-conta"}, wantErr: "opening statement"},
		{name: "BadFormat", args: []string{"preview", statement, "--bank", "cgd-conta", "--format", "xml"}, wantErr: `unknown format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runTally(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
