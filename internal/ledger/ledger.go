package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry and determines the sign of its amount.
type Kind string

const (
	KindIncome         Kind = "income"
	KindExpense        Kind = "expense"
	KindTransferIn     Kind = "transfer_in"
	KindTransferOut    Kind = "transfer_out"
	KindInitialBalance Kind = "initial_balance"
)

// Valid reports whether k is one of the known entry kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransferIn, KindTransferOut, KindInitialBalance:
		return true
	}

	return false
}

// Sign is +1 for kinds that add to the wallet and -1 for kinds that draw
// from it.
func (k Kind) Sign() int {
	if k == KindExpense || k == KindTransferOut {
		return -1
	}

	return 1
}

// Transaction is a single ledger entry. Balance is derived by the engine and
// never accepted from callers; Seq is assigned by the store on insert and is
// the tie-break for entries sharing the same Date.
type Transaction struct {
	ID         uuid.UUID
	Seq        int64
	WalletID   uuid.UUID
	Kind       Kind
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	CategoryID *uuid.UUID
	Memo       string
	Date       time.Time
	PairID     *uuid.UUID
	RecordedBy uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
}

// Signed returns the amount with the sign implied by the entry kind.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Kind.Sign() < 0 {
		return t.Amount.Neg()
	}

	return t.Amount
}

// Cursor returns the entry's position in the wallet ordering.
func (t *Transaction) Cursor() Cursor {
	return Cursor{Date: t.Date, Seq: t.Seq}
}

// IsTransferLeg reports whether the entry is one leg of a two-wallet transfer.
func (t *Transaction) IsTransferLeg() bool {
	return t.Kind == KindTransferIn || t.Kind == KindTransferOut
}

// Cursor is the ordering key of a ledger entry: transaction date ascending,
// insert sequence ascending for same-instant entries.
type Cursor struct {
	Date time.Time
	Seq  int64
}

// Compare orders cursors by (Date, Seq). It returns -1 when c sorts before
// other, +1 when after and 0 when equal.
func (c Cursor) Compare(other Cursor) int {
	if c.Date.Before(other.Date) {
		return -1
	}

	if c.Date.After(other.Date) {
		return 1
	}

	switch {
	case c.Seq < other.Seq:
		return -1
	case c.Seq > other.Seq:
		return 1
	}

	return 0
}

// Before reports whether c sorts strictly before other.
func (c Cursor) Before(other Cursor) bool {
	return c.Compare(other) < 0
}

var (
	// ErrNotFound is returned when a referenced transaction or wallet does
	// not exist or has been soft-deleted where existence is required.
	ErrNotFound = errors.New("ledger: not found")

	// ErrWalletBusy is returned when the per-wallet lock could not be
	// acquired. The mutation was not applied; callers may retry.
	ErrWalletBusy = errors.New("ledger: wallet busy, retry")
)

// InvalidInputError rejects a request before any store access.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("ledger: invalid %s: %s", e.Field, e.Reason)
}

// InsufficientFundsError reports the first entry whose recomputed balance
// would go negative. The mutation that triggered it was rolled back in full.
type InsufficientFundsError struct {
	TransactionID uuid.UUID
	Date          time.Time
	Balance       decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("ledger: insufficient funds: transaction %s on %s would leave balance %s",
		e.TransactionID, e.Date.Format(time.DateOnly), e.Balance)
}
