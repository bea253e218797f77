package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/masjidhub/masjidkas/internal/ledger"
	"github.com/masjidhub/masjidkas/internal/report"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CategoryTotals(ctx context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]report.CategoryTotal, error) {
	query := `
		SELECT c.id, COALESCE(c.name, 'Tanpa kategori'), t.kind, SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
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

	query += `
		GROUP BY c.id, c.name, t.kind
		ORDER BY SUM(t.amount) DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing categories: %w", err)
	}
	defer rows.Close()

	var totals []report.CategoryTotal

	for rows.Next() {
		var ct report.CategoryTotal

		var kindStr string

		if err := rows.Scan(&ct.CategoryID, &ct.CategoryName, &kindStr, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("scanning category total: %w", err)
		}

		ct.Kind = ledger.Kind(kindStr)

		totals = append(totals, ct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category totals: %w", err)
	}

	return totals, nil
}
