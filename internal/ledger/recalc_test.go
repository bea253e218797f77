package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

func entry(kind ledger.Kind, amount int64, day int) *ledger.Transaction {
	return &ledger.Transaction{
		ID:     uuid.New(),
		Kind:   kind,
		Amount: decimal.NewFromInt(amount),
		Date:   time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecompute(t *testing.T) {
	type testCase struct {
		name          string
		start         int64
		txs           []*ledger.Transaction
		allowNegative bool
		want          []int64
		wantErr       bool
	}

	tests := []testCase{
		{
			name:  "Empty",
			start: 0,
			txs:   nil,
			want:  []int64{},
		},
		{
			name:  "IncomeThenExpense",
			start: 0,
			txs: []*ledger.Transaction{
				entry(ledger.KindIncome, 100000, 1),
				entry(ledger.KindExpense, 30000, 2),
			},
			want: []int64{100000, 70000},
		},
		{
			name:  "AllKindSigns",
			start: 0,
			txs: []*ledger.Transaction{
				entry(ledger.KindInitialBalance, 500, 1),
				entry(ledger.KindTransferIn, 250, 2),
				entry(ledger.KindTransferOut, 100, 3),
				entry(ledger.KindExpense, 50, 4),
				entry(ledger.KindIncome, 25, 5),
			},
			want: []int64{500, 750, 650, 600, 625},
		},
		{
			name:  "StartingBalanceCarries",
			start: 1000,
			txs: []*ledger.Transaction{
				entry(ledger.KindExpense, 400, 1),
			},
			want: []int64{600},
		},
		{
			name:  "OverdraftRejected",
			start: 0,
			txs: []*ledger.Transaction{
				entry(ledger.KindIncome, 100, 1),
				entry(ledger.KindExpense, 300, 2),
			},
			wantErr: true,
		},
		{
			name:  "OverdraftAllowedByPolicy",
			start: 0,
			txs: []*ledger.Transaction{
				entry(ledger.KindIncome, 100, 1),
				entry(ledger.KindExpense, 300, 2),
				entry(ledger.KindIncome, 500, 3),
			},
			allowNegative: true,
			want:          []int64{100, -200, 300},
		},
		{
			name:  "ExactZeroIsNotOverdraft",
			start: 0,
			txs: []*ledger.Transaction{
				entry(ledger.KindIncome, 100, 1),
				entry(ledger.KindExpense, 100, 2),
			},
			want: []int64{100, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.Recompute(decimal.NewFromInt(tt.start), tt.txs, tt.allowNegative)

			if tt.wantErr {
				require.Error(t, err)

				var insufficient *ledger.InsufficientFundsError
				require.ErrorAs(t, err, &insufficient)
				assert.Equal(t, tt.txs[len(tt.txs)-1].ID, insufficient.TransactionID)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.Len(t, got, len(tt.want))

			for i, want := range tt.want {
				assert.True(t, got[i].Equal(decimal.NewFromInt(want)),
					"balance %d: want %d, got %s", i, want, got[i])
			}
		})
	}
}

func TestRecompute_NamesFirstOffender(t *testing.T) {
	txs := []*ledger.Transaction{
		entry(ledger.KindIncome, 100, 1),
		entry(ledger.KindExpense, 150, 2),
		entry(ledger.KindExpense, 999, 3),
	}

	_, err := ledger.Recompute(decimal.Zero, txs, false)

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, txs[1].ID, insufficient.TransactionID)
	assert.True(t, insufficient.Balance.Equal(decimal.NewFromInt(-50)))
}

func TestRecompute_DoesNotMutateInput(t *testing.T) {
	txs := []*ledger.Transaction{
		entry(ledger.KindIncome, 100, 1),
		entry(ledger.KindExpense, 40, 2),
	}
	txs[0].Balance = decimal.NewFromInt(42)
	txs[1].Balance = decimal.NewFromInt(43)

	_, err := ledger.Recompute(decimal.Zero, txs, false)
	require.NoError(t, err)

	assert.True(t, txs[0].Balance.Equal(decimal.NewFromInt(42)))
	assert.True(t, txs[1].Balance.Equal(decimal.NewFromInt(43)))
}

func TestRecompute_Deterministic(t *testing.T) {
	txs := []*ledger.Transaction{
		entry(ledger.KindIncome, 12345, 1),
		entry(ledger.KindExpense, 678, 2),
		entry(ledger.KindTransferOut, 90, 3),
	}

	first, err := ledger.Recompute(decimal.Zero, txs, false)
	require.NoError(t, err)

	second, err := ledger.Recompute(decimal.Zero, txs, false)
	require.NoError(t, err)

	require.Len(t, second, len(first))

	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}
