package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/masjidhub/masjidkas/internal/wallet"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectWalletColumns = `w.id, w.owner_id, w.name, w.type, w.created_at, w.updated_at, w.deleted_at`

func scanWallet(s scanner) (*wallet.Wallet, error) {
	var w wallet.Wallet

	var typeStr string

	if err := s.Scan(&w.ID, &w.OwnerID, &w.Name, &typeStr, &w.CreatedAt, &w.UpdatedAt, &w.DeletedAt); err != nil {
		return nil, err
	}

	w.Type = wallet.Type(typeStr)

	return &w, nil
}

func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (owner_id, name, type, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, w.OwnerID, w.Name, w.Type).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + `
		FROM wallets w
		WHERE w.id = $1 AND w.deleted_at IS NULL`

	w, err := scanWallet(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, wallet.ErrNotFound
		}

		return nil, fmt.Errorf("getting wallet: %w", err)
	}

	return w, nil
}

func (s *Store) ListWallets(ctx context.Context, ownerID uuid.UUID) ([]*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + `
		FROM wallets w
		WHERE w.owner_id = $1 AND w.deleted_at IS NULL
		ORDER BY w.name ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*wallet.Wallet

	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}

		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet rows: %w", err)
	}

	return wallets, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET name = $1, type = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, w.Name, w.Type, w.ID)
	if err != nil {
		return fmt.Errorf("updating wallet: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wallet.ErrNotFound
	}

	return nil
}

func (s *Store) SoftDeleteWallet(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE wallets
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	return nil
}

const selectCategoryColumns = `c.id, c.owner_id, c.name, c.kind, c.created_at, c.updated_at, c.deleted_at`

func scanCategory(s scanner) (*wallet.Category, error) {
	var c wallet.Category

	var kindStr string

	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &kindStr, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
		return nil, err
	}

	c.Kind = wallet.CategoryKind(kindStr)

	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *wallet.Category) error {
	query := `
		INSERT INTO categories (owner_id, name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, c.OwnerID, c.Name, c.Kind).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*wallet.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM categories c
		WHERE c.id = $1 AND c.deleted_at IS NULL`

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, wallet.ErrNotFound
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*wallet.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM categories c
		WHERE c.owner_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.name ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*wallet.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return categories, nil
}

// DetachAndDeleteCategory nulls the category reference on the category's
// transactions and soft-deletes the category in one database transaction, so
// no transaction ever points at a deleted category.
func (s *Store) DetachAndDeleteCategory(ctx context.Context, id uuid.UUID) (int, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning category delete: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = NULL, updated_at = NOW()
		WHERE category_id = $1
	`, id)
	if err != nil {
		return 0, fmt.Errorf("detaching category: %w", err)
	}

	detached, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting detached rows: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `
		UPDATE categories
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id); err != nil {
		return 0, fmt.Errorf("deleting category: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing category delete: %w", err)
	}

	return int(detached), nil
}
