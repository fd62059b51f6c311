package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type transactionResponse struct {
	ID        uuid.UUID       `json:"id"`
	Date      string          `json:"date"`
	Merchant  string          `json:"merchant"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     *string         `json:"notes,omitempty"`
	BankID    *string         `json:"bank_id,omitempty"`
	AccountID *uuid.UUID      `json:"account_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:        tx.ID,
		Date:      tx.Date.Format(time.DateOnly),
		Merchant:  tx.Merchant,
		Amount:    tx.Amount,
		Notes:     tx.Notes,
		BankID:    tx.BankID,
		AccountID: tx.AccountID,
		CreatedAt: tx.CreatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
