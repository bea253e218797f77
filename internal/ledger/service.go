package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	LatestTransaction(ctx context.Context, walletID uuid.UUID) (*Transaction, error)
	LatestTransactionAsOf(ctx context.Context, walletID uuid.UUID, asOf time.Time) (*Transaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, filter ListFilter) ([]*Transaction, error)
	OwnerBalances(ctx context.Context, ownerID uuid.UUID) ([]WalletBalance, error)
	WalletExists(ctx context.Context, walletID uuid.UUID) (bool, error)

	// Begin opens an atomic unit of work holding the exclusive lock of every
	// listed wallet for its whole lifetime. It fails with ErrWalletBusy when
	// a lock is already held elsewhere.
	Begin(ctx context.Context, walletIDs ...uuid.UUID) (Tx, error)
}

// Tx is a wallet-locked unit of work. Every read inside it sees the snapshot
// the recompute will be applied to; Commit publishes all writes atomically.
type Tx interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	InsertTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	SoftDeleteTransaction(ctx context.Context, id uuid.UUID) error
	SetPair(ctx context.Context, id, pairID uuid.UUID) error

	// LastBefore returns the latest non-deleted entry strictly before cur,
	// or ErrNotFound. AllAfter returns every non-deleted entry strictly
	// after cur in ascending order. Both skip exclude when it is non-nil.
	LastBefore(ctx context.Context, walletID uuid.UUID, cur Cursor, exclude uuid.UUID) (*Transaction, error)
	AllAfter(ctx context.Context, walletID uuid.UUID, cur Cursor, exclude uuid.UUID) ([]*Transaction, error)
	All(ctx context.Context, walletID uuid.UUID) ([]*Transaction, error)

	UpdateBalances(ctx context.Context, txs []*Transaction) error

	Commit() error
	Rollback() error
}

// WalletBalance is one row of an owner-wide balance summary.
type WalletBalance struct {
	WalletID   uuid.UUID
	WalletName string
	WalletType string
	Balance    decimal.Decimal
}

type Service struct {
	repo Repository

	// allowNegative disables the insufficient-funds rule, permitting
	// overdrawn wallets.
	allowNegative bool
}

func NewService(repo Repository, allowNegative bool) *Service {
	return &Service{repo: repo, allowNegative: allowNegative}
}

type CreateParams struct {
	WalletID   uuid.UUID
	Kind       Kind
	Amount     decimal.Decimal
	CategoryID *uuid.UUID
	Memo       string
	Date       time.Time
	RecordedBy uuid.UUID
}

type UpdateParams struct {
	Amount        *decimal.Decimal
	Kind          *Kind
	Date          *time.Time
	Memo          *string
	CategoryID    *uuid.UUID
	ClearCategory bool
}

type TransferParams struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	CategoryID   *uuid.UUID
	Memo         string
	Date         time.Time
	RecordedBy   uuid.UUID
}

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// MutationResult reports what a mutation persisted: the entry itself plus how
// many later entries had their balance rewritten.
type MutationResult struct {
	Transaction    *Transaction
	SuffixRewrites int
}

func validateCreate(params CreateParams) error {
	if !params.Kind.Valid() {
		return &InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unknown transaction kind %q", params.Kind)}
	}

	if !params.Amount.IsPositive() {
		return &InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
	}

	if params.Date.IsZero() {
		return &InvalidInputError{Field: "date", Reason: "required"}
	}

	return nil
}

// appendCursor is the ordering position of a not-yet-inserted entry dated d:
// after every existing entry with the same date, before any later date.
func appendCursor(d time.Time) Cursor {
	return Cursor{Date: d, Seq: math.MaxInt64}
}

// Create records a new ledger entry. The preceding balance is taken from the
// last entry at or before the given date; a backdated entry additionally
// recomputes every later balance. Everything is committed atomically under
// the wallet lock.
func (s *Service) Create(ctx context.Context, params CreateParams) (*MutationResult, error) {
	if err := validateCreate(params); err != nil {
		return nil, err
	}

	if err := s.requireWallet(ctx, params.WalletID); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx, params.WalletID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry := &Transaction{
		WalletID:   params.WalletID,
		Kind:       params.Kind,
		Amount:     params.Amount,
		CategoryID: params.CategoryID,
		Memo:       params.Memo,
		Date:       params.Date,
		RecordedBy: params.RecordedBy,
	}

	touched, err := s.insertBalanced(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	return &MutationResult{Transaction: entry, SuffixRewrites: touched}, nil
}

// insertBalanced inserts entry and rebalances the affected range of its
// wallet inside an already-open unit of work. It returns the number of
// existing entries whose balance was rewritten.
func (s *Service) insertBalanced(ctx context.Context, tx Tx, entry *Transaction) (int, error) {
	cur := appendCursor(entry.Date)

	start, err := s.precedingBalance(ctx, tx, entry.WalletID, cur, uuid.Nil)
	if err != nil {
		return 0, err
	}

	suffix, err := tx.AllAfter(ctx, entry.WalletID, cur, uuid.Nil)
	if err != nil {
		return 0, fmt.Errorf("fetching suffix: %w", err)
	}

	if err := tx.InsertTransaction(ctx, entry); err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}

	chain := make([]*Transaction, 0, len(suffix)+1)
	chain = append(chain, entry)
	chain = append(chain, suffix...)

	if err := s.rebalance(ctx, tx, start, chain); err != nil {
		return 0, err
	}

	return len(suffix), nil
}

// Update applies field changes to an existing entry and recomputes every
// balance from the earlier of its old and new ordering positions onward.
func (s *Service) Update(ctx context.Context, id uuid.UUID, changes UpdateParams) (*MutationResult, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx, current.WalletID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Re-read under the lock; the row may have moved since the unlocked read.
	entry, err := tx.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	oldCur := entry.Cursor()

	if err := applyChanges(entry, changes); err != nil {
		return nil, err
	}

	newCur := entry.Cursor()

	minCur := newCur
	if oldCur.Before(minCur) {
		minCur = oldCur
	}

	start, err := s.precedingBalance(ctx, tx, entry.WalletID, minCur, entry.ID)
	if err != nil {
		return nil, err
	}

	others, err := tx.AllAfter(ctx, entry.WalletID, minCur, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching recompute range: %w", err)
	}

	chain := mergeAt(others, entry)

	if err := tx.UpdateTransaction(ctx, entry); err != nil {
		return nil, fmt.Errorf("updating transaction: %w", err)
	}

	if err := s.rebalance(ctx, tx, start, chain); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}

	return &MutationResult{Transaction: entry, SuffixRewrites: len(chain) - 1}, nil
}

func applyChanges(entry *Transaction, changes UpdateParams) error {
	if changes.Kind != nil && *changes.Kind != entry.Kind {
		if !changes.Kind.Valid() {
			return &InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unknown transaction kind %q", *changes.Kind)}
		}

		// Changing kind into or out of a transfer would orphan the paired
		// leg on the other wallet.
		if entry.IsTransferLeg() || *changes.Kind == KindTransferIn || *changes.Kind == KindTransferOut {
			return &InvalidInputError{Field: "kind", Reason: "transfer legs cannot change kind"}
		}

		entry.Kind = *changes.Kind
	}

	if changes.Amount != nil {
		if !changes.Amount.IsPositive() {
			return &InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
		}

		entry.Amount = *changes.Amount
	}

	if changes.Date != nil {
		if changes.Date.IsZero() {
			return &InvalidInputError{Field: "date", Reason: "required"}
		}

		entry.Date = *changes.Date
	}

	if changes.Memo != nil {
		entry.Memo = *changes.Memo
	}

	if changes.ClearCategory {
		entry.CategoryID = nil
	} else if changes.CategoryID != nil {
		entry.CategoryID = changes.CategoryID
	}

	return nil
}

// mergeAt places entry into the ascending sequence others at the position its
// cursor dictates. others must not contain entry.
func mergeAt(others []*Transaction, entry *Transaction) []*Transaction {
	idx := len(others)

	for i, other := range others {
		if entry.Cursor().Before(other.Cursor()) {
			idx = i
			break
		}
	}

	chain := make([]*Transaction, 0, len(others)+1)
	chain = append(chain, others[:idx]...)
	chain = append(chain, entry)
	chain = append(chain, others[idx:]...)

	return chain
}

// Delete soft-deletes an entry and recomputes the suffix that followed it,
// starting from the balance of the entry immediately preceding it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*MutationResult, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx, current.WalletID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := tx.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	cur := entry.Cursor()

	start, err := s.precedingBalance(ctx, tx, entry.WalletID, cur, entry.ID)
	if err != nil {
		return nil, err
	}

	suffix, err := tx.AllAfter(ctx, entry.WalletID, cur, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching suffix: %w", err)
	}

	if err := tx.SoftDeleteTransaction(ctx, id); err != nil {
		return nil, fmt.Errorf("deleting transaction: %w", err)
	}

	if err := s.rebalance(ctx, tx, start, suffix); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}

	return &MutationResult{Transaction: entry, SuffixRewrites: len(suffix)}, nil
}

// TransferResult holds both persisted legs of a completed transfer.
type TransferResult struct {
	Out *Transaction
	In  *Transaction
}

// Transfer moves funds between two wallets as a linked transfer_out /
// transfer_in pair. Both wallet locks are held for the whole operation and
// both legs commit atomically; either leg failing rolls back both.
func (s *Service) Transfer(ctx context.Context, params TransferParams) (*TransferResult, error) {
	if params.FromWalletID == params.ToWalletID {
		return nil, &InvalidInputError{Field: "to_wallet_id", Reason: "source and destination wallets must differ"}
	}

	if !params.Amount.IsPositive() {
		return nil, &InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
	}

	if params.Date.IsZero() {
		return nil, &InvalidInputError{Field: "date", Reason: "required"}
	}

	for _, walletID := range []uuid.UUID{params.FromWalletID, params.ToWalletID} {
		if err := s.requireWallet(ctx, walletID); err != nil {
			return nil, err
		}
	}

	tx, err := s.repo.Begin(ctx, params.FromWalletID, params.ToWalletID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := &Transaction{
		WalletID:   params.FromWalletID,
		Kind:       KindTransferOut,
		Amount:     params.Amount,
		CategoryID: params.CategoryID,
		Memo:       params.Memo,
		Date:       params.Date,
		RecordedBy: params.RecordedBy,
	}

	if _, err := s.insertBalanced(ctx, tx, out); err != nil {
		return nil, err
	}

	in := &Transaction{
		WalletID:   params.ToWalletID,
		Kind:       KindTransferIn,
		Amount:     params.Amount,
		CategoryID: params.CategoryID,
		Memo:       params.Memo,
		Date:       params.Date,
		PairID:     &out.ID,
		RecordedBy: params.RecordedBy,
	}

	if _, err := s.insertBalanced(ctx, tx, in); err != nil {
		return nil, err
	}

	if err := tx.SetPair(ctx, out.ID, in.ID); err != nil {
		return nil, fmt.Errorf("linking transfer legs: %w", err)
	}
	out.PairID = &in.ID

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}

	return &TransferResult{Out: out, In: in}, nil
}

// Reconcile rebuilds every balance of a wallet from a zero starting balance.
// It runs permissively so repair of an already-inconsistent ledger always
// completes, and it is idempotent. Returns the number of rows recalculated.
func (s *Service) Reconcile(ctx context.Context, walletID uuid.UUID) (int, error) {
	tx, err := s.repo.Begin(ctx, walletID)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	all, err := tx.All(ctx, walletID)
	if err != nil {
		return 0, fmt.Errorf("fetching ledger: %w", err)
	}

	balances, err := Recompute(decimal.Zero, all, true)
	if err != nil {
		return 0, err
	}

	for i, b := range balances {
		all[i].Balance = b
	}

	if err := tx.UpdateBalances(ctx, all); err != nil {
		return 0, fmt.Errorf("persisting balances: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reconcile: %w", err)
	}

	return len(all), nil
}

// CurrentBalance returns the balance of a wallet's latest entry, or zero for
// an empty ledger.
func (s *Service) CurrentBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	latest, err := s.repo.LatestTransaction(ctx, walletID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}

		return decimal.Zero, err
	}

	return latest.Balance, nil
}

// BalanceAsOf returns the wallet balance after the last entry dated at or
// before asOf, or zero when no such entry exists.
func (s *Service) BalanceAsOf(ctx context.Context, walletID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	latest, err := s.repo.LatestTransactionAsOf(ctx, walletID, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}

		return decimal.Zero, err
	}

	return latest.Balance, nil
}

// OwnerBalances returns the current balance of every wallet of an owner.
func (s *Service) OwnerBalances(ctx context.Context, ownerID uuid.UUID) ([]WalletBalance, error) {
	return s.repo.OwnerBalances(ctx, ownerID)
}

// Get returns a single ledger entry.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// List returns a wallet's non-deleted entries in ledger order.
func (s *Service) List(ctx context.Context, walletID uuid.UUID, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, walletID, filter)
}

func (s *Service) requireWallet(ctx context.Context, walletID uuid.UUID) error {
	ok, err := s.repo.WalletExists(ctx, walletID)
	if err != nil {
		return fmt.Errorf("checking wallet: %w", err)
	}

	if !ok {
		return fmt.Errorf("wallet %s: %w", walletID, ErrNotFound)
	}

	return nil
}

func (s *Service) precedingBalance(ctx context.Context, tx Tx, walletID uuid.UUID, cur Cursor, exclude uuid.UUID) (decimal.Decimal, error) {
	prev, err := tx.LastBefore(ctx, walletID, cur, exclude)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}

		return decimal.Zero, fmt.Errorf("fetching preceding entry: %w", err)
	}

	return prev.Balance, nil
}

// rebalance recomputes chain from start and persists the resulting balances.
func (s *Service) rebalance(ctx context.Context, tx Tx, start decimal.Decimal, chain []*Transaction) error {
	balances, err := Recompute(start, chain, s.allowNegative)
	if err != nil {
		return err
	}

	for i, b := range balances {
		chain[i].Balance = b
	}

	if err := tx.UpdateBalances(ctx, chain); err != nil {
		return fmt.Errorf("persisting balances: %w", err)
	}

	return nil
}
