package importer_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masjidhub/masjidkas/internal/importer"
	"github.com/masjidhub/masjidkas/internal/ledger"
)

type stubParser struct {
	rows []importer.Row
	err  error
}

func (p *stubParser) Parse(io.Reader) ([]importer.Row, error) {
	return p.rows, p.err
}

type fakeLedger struct {
	existing []*ledger.Transaction
	created  []ledger.CreateParams
	failOn   int // 1-based index of the create call that fails, 0 = never
}

func (f *fakeLedger) Create(_ context.Context, params ledger.CreateParams) (*ledger.MutationResult, error) {
	if f.failOn > 0 && len(f.created)+1 == f.failOn {
		return nil, &ledger.InsufficientFundsError{Date: params.Date, Balance: decimal.NewFromInt(-1)}
	}

	f.created = append(f.created, params)

	return &ledger.MutationResult{Transaction: &ledger.Transaction{ID: uuid.New()}}, nil
}

func (f *fakeLedger) List(_ context.Context, _ uuid.UUID, _ ledger.ListFilter) ([]*ledger.Transaction, error) {
	return f.existing, nil
}

func row(day int, memo string, amount int64) importer.Row {
	return importer.Row{
		Date:   time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		Memo:   memo,
		Amount: decimal.NewFromInt(amount),
	}
}

func newService(lgr importer.Ledger, p importer.Parser) *importer.Service {
	return importer.NewService(lgr, map[importer.Format]importer.Parser{
		importer.FormatBankCSV: p,
	})
}

func TestService_Import(t *testing.T) {
	lgr := &fakeLedger{}
	svc := newService(lgr, &stubParser{rows: []importer.Row{
		row(1, "Infaq Jumat", 1500000),
		row(2, "Listrik", -350000),
	}})

	res, err := svc.Import(context.Background(), importer.ImportParams{
		WalletID: uuid.New(),
		Format:   importer.FormatBankCSV,
	}, strings.NewReader("unused"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, lgr.created, 2)

	assert.Equal(t, ledger.KindIncome, lgr.created[0].Kind)
	assert.True(t, lgr.created[0].Amount.Equal(decimal.NewFromInt(1500000)))

	assert.Equal(t, ledger.KindExpense, lgr.created[1].Kind)
	assert.True(t, lgr.created[1].Amount.Equal(decimal.NewFromInt(350000)))
}

func TestService_ImportSkipsDuplicates(t *testing.T) {
	lgr := &fakeLedger{
		existing: []*ledger.Transaction{{
			Date:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Memo:   "Infaq Jumat",
			Amount: decimal.NewFromInt(1500000),
		}},
	}
	svc := newService(lgr, &stubParser{rows: []importer.Row{
		row(1, "Infaq Jumat", 1500000),
		row(2, "Listrik", -350000),
	}})

	res, err := svc.Import(context.Background(), importer.ImportParams{
		WalletID: uuid.New(),
		Format:   importer.FormatBankCSV,
	}, strings.NewReader("unused"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
}

func TestService_ImportStopsOnRejectedRow(t *testing.T) {
	lgr := &fakeLedger{failOn: 2}
	svc := newService(lgr, &stubParser{rows: []importer.Row{
		row(1, "Infaq", 1000),
		row(2, "Listrik", -999999),
		row(3, "Infaq", 500),
	}})

	res, err := svc.Import(context.Background(), importer.ImportParams{
		WalletID: uuid.New(),
		Format:   importer.FormatBankCSV,
	}, strings.NewReader("unused"))

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, res.Imported)
}

func TestService_ImportUnknownFormat(t *testing.T) {
	svc := newService(&fakeLedger{}, &stubParser{})

	_, err := svc.Import(context.Background(), importer.ImportParams{
		Format: importer.Format("pdf"),
	}, strings.NewReader(""))
	assert.Error(t, err)
}

func TestService_ImportParserError(t *testing.T) {
	svc := newService(&fakeLedger{}, &stubParser{err: errors.New("bad file")})

	_, err := svc.Import(context.Background(), importer.ImportParams{
		Format: importer.FormatBankCSV,
	}, strings.NewReader(""))
	assert.Error(t, err)
}
