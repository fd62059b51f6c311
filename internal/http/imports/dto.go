package imports

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/executor"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// recordDTO is a record as the client sees it. The same shape is sent back
// on commit.
type recordDTO struct {
	Line      int             `json:"line"`
	Date      string          `json:"date"`
	Merchant  string          `json:"merchant"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     *string         `json:"notes,omitempty"`
	BankID    string          `json:"bank_id,omitempty"`
	AccountID *uuid.UUID      `json:"account_id,omitempty"`
	Status    importer.Status `json:"status"`
	Errors    []string        `json:"errors"`
}

type previewResponse struct {
	Source  string           `json:"source"`
	Headers []string         `json:"headers"`
	Records []recordDTO      `json:"records"`
	Summary importer.Summary `json:"summary"`
}

type commitRequest struct {
	Records   []recordDTO `json:"records"`
	AccountID *uuid.UUID  `json:"account_id"`
}

type insertedResponse struct {
	ID       uuid.UUID       `json:"id"`
	Date     string          `json:"date"`
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
}

type commitResponse struct {
	Records  []recordDTO        `json:"records"`
	Inserted []insertedResponse `json:"inserted"`
	Summary  importer.Summary   `json:"summary"`
}

func toRecordDTO(r importer.Record) recordDTO {
	dto := recordDTO{
		Line:      r.Line,
		Merchant:  r.Merchant,
		Amount:    r.Amount,
		Notes:     r.Notes,
		BankID:    r.BankID,
		AccountID: r.AccountID,
		Status:    r.Status,
		Errors:    r.Errors,
	}

	if !r.Date.IsZero() {
		dto.Date = r.Date.Format(time.DateOnly)
	}

	if dto.Errors == nil {
		dto.Errors = []string{}
	}

	return dto
}

func toRecordDTOs(records []importer.Record) []recordDTO {
	out := make([]recordDTO, len(records))
	for i, r := range records {
		out[i] = toRecordDTO(r)
	}

	return out
}

func (d recordDTO) record() (importer.Record, error) {
	r := importer.Record{
		Line:      d.Line,
		Merchant:  d.Merchant,
		Amount:    d.Amount,
		Notes:     d.Notes,
		BankID:    d.BankID,
		AccountID: d.AccountID,
		Status:    d.Status,
		Errors:    d.Errors,
	}

	if d.Date != "" {
		t, err := time.Parse(time.DateOnly, d.Date)
		if err != nil {
			return r, fmt.Errorf("line %d: invalid date %q", d.Line, d.Date)
		}

		r.Date = t
	}

	return r, nil
}

func toPreviewResponse(b *executor.Batch) previewResponse {
	headers := b.Headers
	if headers == nil {
		headers = []string{}
	}

	return previewResponse{
		Source:  b.Source,
		Headers: headers,
		Records: toRecordDTOs(b.Records),
		Summary: b.Summary,
	}
}

func toCommitResponse(res *executor.CommitResult) commitResponse {
	inserted := make([]insertedResponse, 0, len(res.Inserted))
	for _, tx := range res.Inserted {
		inserted = append(inserted, toInserted(tx))
	}

	return commitResponse{
		Records:  toRecordDTOs(res.Records),
		Inserted: inserted,
		Summary:  res.Summary,
	}
}

func toInserted(tx *transaction.Transaction) insertedResponse {
	return insertedResponse{
		ID:       tx.ID,
		Date:     tx.Date.Format(time.DateOnly),
		Merchant: tx.Merchant,
		Amount:   tx.Amount,
	}
}
