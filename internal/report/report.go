package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

// CategoryTotal is one row of a per-category summary. CategoryID is nil for
// entries whose category was detached or never set.
type CategoryTotal struct {
	CategoryID   *uuid.UUID
	CategoryName string
	Kind         ledger.Kind
	Total        decimal.Decimal
	Count        int
}

type Repository interface {
	CategoryTotals(ctx context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]CategoryTotal, error)
}

type Ledger interface {
	List(ctx context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]*ledger.Transaction, error)
}

// Service answers read-only reporting queries. It never mutates the ledger.
type Service struct {
	repo Repository
	lgr  Ledger
}

func NewService(repo Repository, lgr Ledger) *Service {
	return &Service{repo: repo, lgr: lgr}
}

func (s *Service) CategorySummary(ctx context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]CategoryTotal, error) {
	return s.repo.CategoryTotals(ctx, walletID, filter)
}

var exportHeader = []string{"date", "kind", "memo", "amount", "balance"}

// ExportCSV streams a wallet's ledger to w in statement order and returns the
// number of data rows written.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, walletID uuid.UUID, filter ledger.ListFilter) (int, error) {
	txs, err := s.lgr.List(ctx, walletID, filter)
	if err != nil {
		return 0, fmt.Errorf("listing transactions: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range txs {
		record := []string{
			tx.Date.Format(time.RFC3339),
			string(tx.Kind),
			tx.Memo,
			tx.Amount.String(),
			tx.Balance.String(),
		}
		if err := cw.Write(record); err != nil {
			return i, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return len(txs), fmt.Errorf("flushing csv: %w", err)
	}

	return len(txs), nil
}
