package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
	"github.com/masjidhub/masjidkas/internal/wallet"
)

// JSON writes v as an application/json body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type insufficientFundsBody struct {
	Error         string          `json:"error"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Date          time.Time       `json:"date"`
	Balance       decimal.Decimal `json:"balance"`
}

// Error maps domain errors onto HTTP statuses. Validation failures are 400,
// missing rows 404, a rejected overdraft 422, a held wallet lock 409 and
// anything unexpected an opaque 500.
func Error(w http.ResponseWriter, err error) {
	var invalidLedger *ledger.InvalidInputError
	if errors.As(err, &invalidLedger) {
		JSON(w, http.StatusBadRequest, errorBody{Error: invalidLedger.Error()})
		return
	}

	var invalidWallet *wallet.InvalidInputError
	if errors.As(err, &invalidWallet) {
		JSON(w, http.StatusBadRequest, errorBody{Error: invalidWallet.Error()})
		return
	}

	var insufficient *ledger.InsufficientFundsError
	if errors.As(err, &insufficient) {
		body := insufficientFundsBody{
			Error:   insufficient.Error(),
			Date:    insufficient.Date,
			Balance: insufficient.Balance,
		}
		if insufficient.TransactionID != uuid.Nil {
			body.TransactionID = &insufficient.TransactionID
		}

		JSON(w, http.StatusUnprocessableEntity, body)

		return
	}

	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, wallet.ErrNotFound):
		JSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, ledger.ErrWalletBusy):
		JSON(w, http.StatusConflict, errorBody{Error: "wallet busy, retry"})
	default:
		slog.Error("request failed", "error", err)
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
