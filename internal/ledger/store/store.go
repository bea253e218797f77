package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.seq, t.wallet_id, t.kind, t.amount, t.balance, t.category_id,
	t.memo, t.date, t.pair_id, t.recorded_by, t.created_at, t.updated_at, t.deleted_at
`

// scanTransaction reads a transaction row in selectTransactionColumns order.
func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var kindStr string

	var memo sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.Seq, &tx.WalletID, &kindStr, &tx.Amount, &tx.Balance, &tx.CategoryID,
		&memo, &tx.Date, &tx.PairID, &tx.RecordedBy, &tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	tx.Kind = ledger.Kind(kindStr)
	tx.Memo = memo.String

	return &tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) LatestTransaction(ctx context.Context, walletID uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1 AND t.deleted_at IS NULL
		ORDER BY t.date DESC, t.seq DESC
		LIMIT 1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, walletID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting latest transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) LatestTransactionAsOf(ctx context.Context, walletID uuid.UUID, asOf time.Time) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1 AND t.deleted_at IS NULL AND t.date <= $2
		ORDER BY t.date DESC, t.seq DESC
		LIMIT 1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, walletID, asOf))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction as of %s: %w", asOf, err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1 AND t.deleted_at IS NULL`

	args := []any{walletID}
	argIdx := 2

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY t.date ASC, t.seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (s *Store) OwnerBalances(ctx context.Context, ownerID uuid.UUID) ([]ledger.WalletBalance, error) {
	query := `
		SELECT w.id, w.name, w.type, COALESCE(latest.balance, 0)
		FROM wallets w
		LEFT JOIN LATERAL (
			SELECT t.balance
			FROM transactions t
			WHERE t.wallet_id = w.id AND t.deleted_at IS NULL
			ORDER BY t.date DESC, t.seq DESC
			LIMIT 1
		) latest ON TRUE
		WHERE w.owner_id = $1 AND w.deleted_at IS NULL
		ORDER BY w.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing owner balances: %w", err)
	}
	defer rows.Close()

	var balances []ledger.WalletBalance

	for rows.Next() {
		var wb ledger.WalletBalance
		if err := rows.Scan(&wb.WalletID, &wb.WalletName, &wb.WalletType, &wb.Balance); err != nil {
			return nil, fmt.Errorf("scanning wallet balance: %w", err)
		}

		balances = append(balances, wb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet balances: %w", err)
	}

	return balances, nil
}

func (s *Store) WalletExists(ctx context.Context, walletID uuid.UUID) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1 AND deleted_at IS NULL)`
	if err := s.db.QueryRowContext(ctx, query, walletID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking wallet: %w", err)
	}

	return exists, nil
}

// walletLockKey derives the advisory lock key serializing mutations of a
// single wallet.
func walletLockKey(walletID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("wallet:"))
	h.Write(walletID[:])

	return int64(h.Sum64())
}

type ledgerTx struct {
	tx *sql.Tx
}

// Begin opens a database transaction holding the advisory lock of every
// wallet listed, acquired in ascending wallet-id order so concurrent
// transfers cannot deadlock. A lock already held elsewhere fails fast with
// ledger.ErrWalletBusy.
func (s *Store) Begin(ctx context.Context, walletIDs ...uuid.UUID) (ledger.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	ids := make([]uuid.UUID, len(walletIDs))
	copy(ids, walletIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		var locked bool
		if err := dbTx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1)", walletLockKey(id)).Scan(&locked); err != nil {
			dbTx.Rollback()
			return nil, fmt.Errorf("acquiring wallet lock: %w", err)
		}

		if !locked {
			dbTx.Rollback()
			return nil, ledger.ErrWalletBusy
		}
	}

	return &ledgerTx{tx: dbTx}, nil
}

func (ltx *ledgerTx) Commit() error   { return ltx.tx.Commit() }
func (ltx *ledgerTx) Rollback() error { return ltx.tx.Rollback() }

func (ltx *ledgerTx) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(ltx.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (ltx *ledgerTx) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (wallet_id, kind, amount, balance, category_id, memo, date, pair_id, recorded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, seq, created_at, updated_at
	`

	err := ltx.tx.QueryRowContext(ctx, query,
		tx.WalletID,
		tx.Kind,
		tx.Amount,
		tx.Balance,
		tx.CategoryID,
		tx.Memo,
		tx.Date,
		tx.PairID,
		tx.RecordedBy,
	).Scan(&tx.ID, &tx.Seq, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		UPDATE transactions
		SET kind = $1, amount = $2, category_id = $3, memo = $4, date = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
	`

	res, err := ltx.tx.ExecContext(ctx, query,
		tx.Kind,
		tx.Amount,
		tx.CategoryID,
		tx.Memo,
		tx.Date,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (ltx *ledgerTx) SoftDeleteTransaction(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	res, err := ltx.tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (ltx *ledgerTx) SetPair(ctx context.Context, id, pairID uuid.UUID) error {
	query := `
		UPDATE transactions
		SET pair_id = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	if _, err := ltx.tx.ExecContext(ctx, query, pairID, id); err != nil {
		return fmt.Errorf("linking transfer pair: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) LastBefore(ctx context.Context, walletID uuid.UUID, cur ledger.Cursor, exclude uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1 AND t.deleted_at IS NULL
			AND (t.date, t.seq) < ($2, $3)
			AND t.id <> $4
		ORDER BY t.date DESC, t.seq DESC
		LIMIT 1`

	tx, err := scanTransaction(ltx.tx.QueryRowContext(ctx, query, walletID, cur.Date, cur.Seq, exclude))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting preceding transaction: %w", err)
	}

	return tx, nil
}

func (ltx *ledgerTx) AllAfter(ctx context.Context, walletID uuid.UUID, cur ledger.Cursor, exclude uuid.UUID) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1 AND t.deleted_at IS NULL
			AND (t.date, t.seq) > ($2, $3)
			AND t.id <> $4
		ORDER BY t.date ASC, t.seq ASC`

	rows, err := ltx.tx.QueryContext(ctx, query, walletID, cur.Date, cur.Seq, exclude)
	if err != nil {
		return nil, fmt.Errorf("listing transactions after cursor: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (ltx *ledgerTx) All(ctx context.Context, walletID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1 AND t.deleted_at IS NULL
		ORDER BY t.date ASC, t.seq ASC`

	rows, err := ltx.tx.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (ltx *ledgerTx) UpdateBalances(ctx context.Context, txs []*ledger.Transaction) error {
	query := `
		UPDATE transactions
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	for _, tx := range txs {
		if _, err := ltx.tx.ExecContext(ctx, query, tx.Balance, tx.ID); err != nil {
			return fmt.Errorf("updating balance of %s: %w", tx.ID, err)
		}
	}

	return nil
}

func collectTransactions(rows *sql.Rows) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}
