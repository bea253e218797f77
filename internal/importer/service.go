package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/masjidhub/masjidkas/internal/encoding"
	"github.com/masjidhub/masjidkas/internal/ledger"
)

// Ledger is the slice of the ledger engine the importer drives. Every
// imported row goes through the normal create path so it lands balanced.
type Ledger interface {
	Create(ctx context.Context, params ledger.CreateParams) (*ledger.MutationResult, error)
	List(ctx context.Context, walletID uuid.UUID, filter ledger.ListFilter) ([]*ledger.Transaction, error)
}

type Service struct {
	parsers map[Format]Parser
	lgr     Ledger
}

// NewService wires the available statement parsers, keyed by format. Parsers
// live in sub-packages and are injected here so they can share the Row type.
func NewService(lgr Ledger, parsers map[Format]Parser) *Service {
	return &Service{parsers: parsers, lgr: lgr}
}

type ImportParams struct {
	WalletID   uuid.UUID
	RecordedBy uuid.UUID
	Format     Format
}

type Result struct {
	Imported int
	Skipped  int
}

// Import parses a statement and records each row as an income or expense
// entry. Rows already present on the wallet (same date, amount and memo) are
// skipped so re-uploading a statement is harmless. Each row is created
// atomically; the import stops at the first rejected row.
func (s *Service) Import(ctx context.Context, params ImportParams, r io.Reader) (*Result, error) {
	parser, ok := s.parsers[params.Format]
	if !ok || parser == nil {
		return nil, fmt.Errorf("unknown statement format: %s", params.Format)
	}

	utf8Reader, err := encoding.Normalize(r)
	if err != nil {
		return nil, fmt.Errorf("normalizing statement encoding: %w", err)
	}

	rows, err := parser.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parsing statement: %w", err)
	}

	if len(rows) == 0 {
		return &Result{}, nil
	}

	existing, err := s.existingKeys(ctx, params.WalletID, rows)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	for i, row := range rows {
		if _, found := existing[rowKey(row.Date, row.Amount.Abs().String(), row.Memo)]; found {
			result.Skipped++
			continue
		}

		kind := ledger.KindIncome
		if row.Amount.IsNegative() {
			kind = ledger.KindExpense
		}

		_, err := s.lgr.Create(ctx, ledger.CreateParams{
			WalletID:   params.WalletID,
			Kind:       kind,
			Amount:     row.Amount.Abs(),
			Memo:       row.Memo,
			Date:       row.Date,
			RecordedBy: params.RecordedBy,
		})
		if err != nil {
			return result, fmt.Errorf("importing row %d (%s): %w", i+1, row.Date.Format(time.DateOnly), err)
		}

		result.Imported++
	}

	return result, nil
}

func (s *Service) existingKeys(ctx context.Context, walletID uuid.UUID, rows []Row) (map[string]struct{}, error) {
	minDate, maxDate := rows[0].Date, rows[0].Date

	for _, row := range rows[1:] {
		if row.Date.Before(minDate) {
			minDate = row.Date
		}

		if row.Date.After(maxDate) {
			maxDate = row.Date
		}
	}

	txs, err := s.lgr.List(ctx, walletID, ledger.ListFilter{StartDate: &minDate, EndDate: &maxDate})
	if err != nil {
		return nil, fmt.Errorf("listing existing transactions: %w", err)
	}

	keys := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		keys[rowKey(tx.Date, tx.Amount.String(), tx.Memo)] = struct{}{}
	}

	return keys, nil
}

func rowKey(date time.Time, amount, memo string) string {
	return date.Format(time.DateOnly) + "\x00" + amount + "\x00" + memo
}
