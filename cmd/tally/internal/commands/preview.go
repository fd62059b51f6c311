package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MrJamesThe3rd/tally/cmd/tally/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/importer/executor"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var errOffline = errors.New("preview runs without a database")

// offlineStore reports no stored transactions, so nothing is flagged as a
// duplicate of earlier imports.
type offlineStore struct{}

func (offlineStore) ExistingKeys(context.Context, uuid.UUID, time.Time, time.Time) (transaction.KeySet, error) {
	return transaction.NewKeySet(), nil
}

func (offlineStore) BeginImport(context.Context, uuid.UUID) (transaction.ImportTx, error) {
	return nil, errOffline
}

// mappingFile is the YAML form of a custom column mapping.
type mappingFile struct {
	Name       string            `yaml:"name"`
	DateFormat string            `yaml:"date_format"`
	Columns    map[string]string `yaml:"columns"`
}

func loadMappingFile(path string) (*executor.CustomMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}

	var mf mappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing mapping file: %w", err)
	}

	cols := make(importer.ColumnMap, len(mf.Columns))

	for k, v := range mf.Columns {
		f := importer.Field(k)
		if !f.Valid() {
			return nil, fmt.Errorf("parsing mapping file: unknown field %q", k)
		}

		cols[f] = v
	}

	return &executor.CustomMapping{Columns: cols, DateFormat: mf.DateFormat}, nil
}

func newPreviewCommand() *cobra.Command {
	var (
		bankID      string
		mappingPath string
		dateFormat  string
		format      string
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Decode and normalize a statement without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "csv" {
				return fmt.Errorf("unknown format %q", format)
			}

			src := executor.Source{BankID: bankID, DateFormat: dateFormat}

			if mappingPath != "" {
				custom, err := loadMappingFile(mappingPath)
				if err != nil {
					return err
				}

				src.Custom = custom
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			svc := executor.NewService(offlineStore{}, bank.Default(), nil, workers)

			batch, err := svc.Preview(cmd.Context(), uuid.Nil, executor.Upload{
				Filename: filepath.Base(args[0]),
				Body:     f,
			}, src)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if format == "csv" {
				return view.WriteCSV(out, batch.Records)
			}

			_, err = fmt.Fprintf(out, "%s\n%s\n", view.RecordTable(batch.Records), view.SummaryLine(batch.Summary))

			return err
		},
	}

	cmd.Flags().StringVar(&bankID, "bank", "", "built-in bank profile id (see tally banks)")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "YAML file with a custom column mapping")
	cmd.Flags().StringVar(&dateFormat, "date-format", "", "override the date format, e.g. dd/MM/yyyy")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or csv")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel normalization workers (0 uses all CPUs)")
	cmd.MarkFlagsMutuallyExclusive("bank", "mapping")
	cmd.MarkFlagsOneRequired("bank", "mapping")

	return cmd
}
