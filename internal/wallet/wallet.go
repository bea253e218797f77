package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type tags the kind of pool a wallet represents.
type Type string

const (
	TypeCash    Type = "cash"
	TypeBank    Type = "bank"
	TypeEWallet Type = "ewallet"
	TypeOther   Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCash, TypeBank, TypeEWallet, TypeOther:
		return true
	}

	return false
}

// Wallet is a named pool of funds belonging to an owning entity (a mosque).
// Wallets are soft-deleted so their ledger history stays queryable.
type Wallet struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Type      Type
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// CategoryKind tags a category for income or expense reporting.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

func (k CategoryKind) Valid() bool {
	return k == CategoryIncome || k == CategoryExpense
}

// Category groups transactions for reporting. Deleting a category detaches it
// from existing transactions instead of deleting them.
type Category struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Kind      CategoryKind
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

var ErrNotFound = errors.New("wallet: not found")

// InvalidInputError rejects a request before any store access.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("wallet: invalid %s: %s", e.Field, e.Reason)
}
