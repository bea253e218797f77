package ledger_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

// memRepo is an in-memory ledger.Repository with snapshot-commit semantics:
// a unit of work stages changes on a copy and publishes them only on Commit,
// so a rejected mutation leaves the committed state untouched.
type memRepo struct {
	wallets map[uuid.UUID]bool
	txs     map[uuid.UUID]ledger.Transaction
	nextSeq int64
}

func newMemRepo(walletIDs ...uuid.UUID) *memRepo {
	r := &memRepo{
		wallets: make(map[uuid.UUID]bool),
		txs:     make(map[uuid.UUID]ledger.Transaction),
		nextSeq: 1,
	}

	for _, id := range walletIDs {
		r.wallets[id] = true
	}

	return r
}

func (r *memRepo) snapshot() map[uuid.UUID]ledger.Transaction {
	cp := make(map[uuid.UUID]ledger.Transaction, len(r.txs))
	for id, tx := range r.txs {
		cp[id] = tx
	}

	return cp
}

// ordered returns the committed non-deleted entries of a wallet in ledger
// order. Tests use it to assert on final state.
func (r *memRepo) ordered(walletID uuid.UUID) []ledger.Transaction {
	return orderedFrom(r.txs, walletID)
}

func orderedFrom(txs map[uuid.UUID]ledger.Transaction, walletID uuid.UUID) []ledger.Transaction {
	var out []ledger.Transaction

	for _, tx := range txs {
		if tx.WalletID == walletID && tx.DeletedAt == nil {
			out = append(out, tx)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Cursor().Before(out[j].Cursor())
	})

	return out
}

func (r *memRepo) GetTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	tx, ok := r.txs[id]
	if !ok || tx.DeletedAt != nil {
		return nil, ledger.ErrNotFound
	}

	cp := tx

	return &cp, nil
}

func (r *memRepo) LatestTransaction(_ context.Context, walletID uuid.UUID) (*ledger.Transaction, error) {
	all := r.ordered(walletID)
	if len(all) == 0 {
		return nil, ledger.ErrNotFound
	}

	cp := all[len(all)-1]

	return &cp, nil
}

func (r *memRepo) LatestTransactionAsOf(_ context.Context, walletID uuid.UUID, asOf time.Time) (*ledger.Transaction, error) {
	all := r.ordered(walletID)

	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Date.After(asOf) {
			cp := all[i]
			return &cp, nil
		}
	}

	return nil, ledger.ErrNotFound
}

func (r *memRepo) ListTransactions(_ context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction

	for _, tx := range r.ordered(walletID) {
		if filter.StartDate != nil && tx.Date.Before(*filter.StartDate) {
			continue
		}

		if filter.EndDate != nil && tx.Date.After(*filter.EndDate) {
			continue
		}

		cp := tx
		out = append(out, &cp)
	}

	return out, nil
}

func (r *memRepo) OwnerBalances(_ context.Context, _ uuid.UUID) ([]ledger.WalletBalance, error) {
	var out []ledger.WalletBalance

	for walletID := range r.wallets {
		wb := ledger.WalletBalance{WalletID: walletID}

		if all := r.ordered(walletID); len(all) > 0 {
			wb.Balance = all[len(all)-1].Balance
		}

		out = append(out, wb)
	}

	return out, nil
}

func (r *memRepo) WalletExists(_ context.Context, walletID uuid.UUID) (bool, error) {
	return r.wallets[walletID], nil
}

func (r *memRepo) Begin(_ context.Context, _ ...uuid.UUID) (ledger.Tx, error) {
	return &memTx{
		repo:    r,
		staged:  r.snapshot(),
		nextSeq: r.nextSeq,
	}, nil
}

type memTx struct {
	repo    *memRepo
	staged  map[uuid.UUID]ledger.Transaction
	nextSeq int64
}

func (m *memTx) Commit() error {
	m.repo.txs = m.staged
	m.repo.nextSeq = m.nextSeq

	return nil
}

func (m *memTx) Rollback() error {
	return nil
}

func (m *memTx) GetTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	tx, ok := m.staged[id]
	if !ok || tx.DeletedAt != nil {
		return nil, ledger.ErrNotFound
	}

	cp := tx

	return &cp, nil
}

func (m *memTx) InsertTransaction(_ context.Context, tx *ledger.Transaction) error {
	tx.ID = uuid.New()
	tx.Seq = m.nextSeq
	tx.CreatedAt = time.Now()
	m.nextSeq++

	m.staged[tx.ID] = *tx

	return nil
}

func (m *memTx) UpdateTransaction(_ context.Context, tx *ledger.Transaction) error {
	stored, ok := m.staged[tx.ID]
	if !ok || stored.DeletedAt != nil {
		return ledger.ErrNotFound
	}

	stored.Kind = tx.Kind
	stored.Amount = tx.Amount
	stored.CategoryID = tx.CategoryID
	stored.Memo = tx.Memo
	stored.Date = tx.Date
	m.staged[tx.ID] = stored

	return nil
}

func (m *memTx) SoftDeleteTransaction(_ context.Context, id uuid.UUID) error {
	stored, ok := m.staged[id]
	if !ok || stored.DeletedAt != nil {
		return ledger.ErrNotFound
	}

	now := time.Now()
	stored.DeletedAt = &now
	m.staged[id] = stored

	return nil
}

func (m *memTx) SetPair(_ context.Context, id, pairID uuid.UUID) error {
	stored, ok := m.staged[id]
	if !ok {
		return ledger.ErrNotFound
	}

	stored.PairID = &pairID
	m.staged[id] = stored

	return nil
}

func (m *memTx) LastBefore(_ context.Context, walletID uuid.UUID, cur ledger.Cursor, exclude uuid.UUID) (*ledger.Transaction, error) {
	all := orderedFrom(m.staged, walletID)

	for i := len(all) - 1; i >= 0; i-- {
		if all[i].ID == exclude {
			continue
		}

		if all[i].Cursor().Before(cur) {
			cp := all[i]
			return &cp, nil
		}
	}

	return nil, ledger.ErrNotFound
}

func (m *memTx) AllAfter(_ context.Context, walletID uuid.UUID, cur ledger.Cursor, exclude uuid.UUID) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction

	for _, tx := range orderedFrom(m.staged, walletID) {
		if tx.ID == exclude || !cur.Before(tx.Cursor()) {
			continue
		}

		cp := tx
		out = append(out, &cp)
	}

	return out, nil
}

func (m *memTx) All(_ context.Context, walletID uuid.UUID) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction

	for _, tx := range orderedFrom(m.staged, walletID) {
		cp := tx
		out = append(out, &cp)
	}

	return out, nil
}

func (m *memTx) UpdateBalances(_ context.Context, txs []*ledger.Transaction) error {
	for _, tx := range txs {
		stored, ok := m.staged[tx.ID]
		if !ok {
			return ledger.ErrNotFound
		}

		stored.Balance = tx.Balance
		m.staged[tx.ID] = stored
	}

	return nil
}
