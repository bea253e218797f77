package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

type transactionResponse struct {
	ID         uuid.UUID       `json:"id"`
	WalletID   uuid.UUID       `json:"wallet_id"`
	Kind       ledger.Kind     `json:"transaction_type"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Memo       string          `json:"memo,omitempty"`
	Date       time.Time       `json:"transaction_date"`
	PairID     *uuid.UUID      `json:"pair_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

func toTransactionResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		WalletID:   tx.WalletID,
		Kind:       tx.Kind,
		Amount:     tx.Amount,
		Balance:    tx.Balance,
		CategoryID: tx.CategoryID,
		Memo:       tx.Memo,
		Date:       tx.Date,
		PairID:     tx.PairID,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
	}
}

func toTransactionResponseList(txs []*ledger.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toTransactionResponse(tx)
	}

	return resp
}

type mutationResponse struct {
	Transaction    transactionResponse `json:"transaction"`
	SuffixRewrites int                 `json:"suffix_rewrites"`
}

func toMutationResponse(res *ledger.MutationResult) mutationResponse {
	return mutationResponse{
		Transaction:    toTransactionResponse(res.Transaction),
		SuffixRewrites: res.SuffixRewrites,
	}
}

type deleteResponse struct {
	ID             uuid.UUID `json:"id"`
	SuffixRewrites int       `json:"suffix_rewrites"`
}

type transferResponse struct {
	Out transactionResponse `json:"out"`
	In  transactionResponse `json:"in"`
}
