package ledger_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

func d(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func day(dayOfMonth int) time.Time {
	return time.Date(2025, 6, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func mustCreate(t *testing.T, svc *ledger.Service, walletID uuid.UUID, kind ledger.Kind, amount int64, date time.Time) *ledger.MutationResult {
	t.Helper()

	res, err := svc.Create(context.Background(), ledger.CreateParams{
		WalletID:   walletID,
		Kind:       kind,
		Amount:     d(amount),
		Date:       date,
		RecordedBy: uuid.New(),
	})
	require.NoError(t, err)

	return res
}

// assertInvariant checks the running-balance contract over the committed
// ledger: every balance equals the previous balance plus the signed amount.
func assertInvariant(t *testing.T, repo *memRepo, walletID uuid.UUID) {
	t.Helper()

	running := decimal.Zero

	for i, tx := range repo.ordered(walletID) {
		running = running.Add(tx.Signed())
		require.True(t, running.Equal(tx.Balance),
			"entry %d (%s on %s): want balance %s, got %s", i, tx.Kind, tx.Date, running, tx.Balance)
	}
}

func TestService_CreateAppends(t *testing.T) {
	// Scenario: income 100000 on day 1, expense 30000 on day 2.
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	first := mustCreate(t, svc, walletID, ledger.KindIncome, 100000, day(1))
	assert.True(t, first.Transaction.Balance.Equal(d(100000)))
	assert.Equal(t, 0, first.SuffixRewrites)

	second := mustCreate(t, svc, walletID, ledger.KindExpense, 30000, day(2))
	assert.True(t, second.Transaction.Balance.Equal(d(70000)))
	assert.Equal(t, 0, second.SuffixRewrites)

	assertInvariant(t, repo, walletID)
}

func TestService_CreateBackdatedRecomputesSuffix(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletID, ledger.KindIncome, 100000, day(1))
	mustCreate(t, svc, walletID, ledger.KindExpense, 30000, day(2))

	// Lands before both existing entries.
	res := mustCreate(t, svc, walletID, ledger.KindIncome, 10000, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC))
	assert.True(t, res.Transaction.Balance.Equal(d(10000)))
	assert.Equal(t, 2, res.SuffixRewrites)

	all := repo.ordered(walletID)
	require.Len(t, all, 3)
	assert.True(t, all[1].Balance.Equal(d(110000)))
	assert.True(t, all[2].Balance.Equal(d(80000)))

	assertInvariant(t, repo, walletID)
}

func TestService_CreateSameDateAppendsAfterPeers(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletID, ledger.KindIncome, 500, day(1))
	res := mustCreate(t, svc, walletID, ledger.KindIncome, 200, day(1))

	assert.True(t, res.Transaction.Balance.Equal(d(700)))

	all := repo.ordered(walletID)
	require.Len(t, all, 2)
	assert.True(t, all[0].Seq < all[1].Seq)
	assert.Equal(t, res.Transaction.ID, all[1].ID)
}

func TestService_UpdateRecomputesSuffix(t *testing.T) {
	// Scenario: shrinking the day-1 income to 50000 recomputes the day-2
	// expense's balance to 20000.
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	first := mustCreate(t, svc, walletID, ledger.KindIncome, 100000, day(1))
	mustCreate(t, svc, walletID, ledger.KindExpense, 30000, day(2))

	amount := d(50000)

	res, err := svc.Update(context.Background(), first.Transaction.ID, ledger.UpdateParams{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, res.Transaction.Balance.Equal(d(50000)))
	assert.Equal(t, 1, res.SuffixRewrites)

	all := repo.ordered(walletID)
	require.Len(t, all, 2)
	assert.True(t, all[0].Balance.Equal(d(50000)))
	assert.True(t, all[1].Balance.Equal(d(20000)))

	assertInvariant(t, repo, walletID)
}

func TestService_UpdateMovesEntryEarlier(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletID, ledger.KindIncome, 1000, day(1))
	mustCreate(t, svc, walletID, ledger.KindIncome, 200, day(5))
	third := mustCreate(t, svc, walletID, ledger.KindExpense, 300, day(10))

	newDate := day(3)

	res, err := svc.Update(context.Background(), third.Transaction.ID, ledger.UpdateParams{Date: &newDate})
	require.NoError(t, err)

	// The moved entry now sits between the two incomes.
	assert.True(t, res.Transaction.Balance.Equal(d(700)))
	assert.Equal(t, 1, res.SuffixRewrites)

	all := repo.ordered(walletID)
	require.Len(t, all, 3)
	assert.Equal(t, res.Transaction.ID, all[1].ID)
	assert.True(t, all[2].Balance.Equal(d(900)))

	assertInvariant(t, repo, walletID)
}

func TestService_UpdateMovesEntryLater(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	first := mustCreate(t, svc, walletID, ledger.KindIncome, 1000, day(1))
	mustCreate(t, svc, walletID, ledger.KindIncome, 200, day(5))

	newDate := day(8)

	_, err := svc.Update(context.Background(), first.Transaction.ID, ledger.UpdateParams{Date: &newDate})
	require.NoError(t, err)

	all := repo.ordered(walletID)
	require.Len(t, all, 2)
	assert.True(t, all[0].Balance.Equal(d(200)))
	assert.True(t, all[1].Balance.Equal(d(1200)))

	assertInvariant(t, repo, walletID)
}

func TestService_CreateRejectsOverdraftAtomically(t *testing.T) {
	// Scenario: a 200000 expense on day 3 must not dent the stored ledger.
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletID, ledger.KindIncome, 100000, day(1))
	mustCreate(t, svc, walletID, ledger.KindExpense, 30000, day(2))

	_, err := svc.Create(context.Background(), ledger.CreateParams{
		WalletID: walletID,
		Kind:     ledger.KindExpense,
		Amount:   d(200000),
		Date:     day(3),
	})

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Balance.Equal(d(-130000)))

	all := repo.ordered(walletID)
	require.Len(t, all, 2)
	assert.True(t, all[0].Balance.Equal(d(100000)))
	assert.True(t, all[1].Balance.Equal(d(70000)))
}

func TestService_DeleteRecomputesSuffix(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletID, ledger.KindIncome, 1000, day(1))
	second := mustCreate(t, svc, walletID, ledger.KindIncome, 200, day(2))
	mustCreate(t, svc, walletID, ledger.KindExpense, 300, day(3))

	res, err := svc.Delete(context.Background(), second.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuffixRewrites)

	all := repo.ordered(walletID)
	require.Len(t, all, 2)
	assert.True(t, all[1].Balance.Equal(d(700)))

	assertInvariant(t, repo, walletID)
}

func TestService_DeleteRolledBackOnOverdraft(t *testing.T) {
	// Scenario: deleting the only income would leave the following expense
	// at -30000; the whole delete must be rolled back.
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	income := mustCreate(t, svc, walletID, ledger.KindIncome, 100000, day(1))
	mustCreate(t, svc, walletID, ledger.KindExpense, 30000, day(2))

	_, err := svc.Delete(context.Background(), income.Transaction.ID)

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Balance.Equal(d(-30000)))

	all := repo.ordered(walletID)
	require.Len(t, all, 2)
	assert.True(t, all[0].Balance.Equal(d(100000)))
	assert.True(t, all[1].Balance.Equal(d(70000)))
}

func TestService_Transfer(t *testing.T) {
	// Scenario: 25000 moves from X (70000) to Y (empty), legs linked.
	walletX := uuid.New()
	walletY := uuid.New()
	repo := newMemRepo(walletX, walletY)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletX, ledger.KindIncome, 100000, day(1))
	mustCreate(t, svc, walletX, ledger.KindExpense, 30000, day(2))

	res, err := svc.Transfer(context.Background(), ledger.TransferParams{
		FromWalletID: walletX,
		ToWalletID:   walletY,
		Amount:       d(25000),
		Date:         day(3),
		RecordedBy:   uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.KindTransferOut, res.Out.Kind)
	assert.True(t, res.Out.Balance.Equal(d(45000)))
	assert.Equal(t, ledger.KindTransferIn, res.In.Kind)
	assert.True(t, res.In.Balance.Equal(d(25000)))

	require.NotNil(t, res.Out.PairID)
	require.NotNil(t, res.In.PairID)
	assert.Equal(t, res.In.ID, *res.Out.PairID)
	assert.Equal(t, res.Out.ID, *res.In.PairID)

	assertInvariant(t, repo, walletX)
	assertInvariant(t, repo, walletY)
}

func TestService_TransferRejectedLeavesBothWalletsUntouched(t *testing.T) {
	walletX := uuid.New()
	walletY := uuid.New()
	repo := newMemRepo(walletX, walletY)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletX, ledger.KindIncome, 100, day(1))

	_, err := svc.Transfer(context.Background(), ledger.TransferParams{
		FromWalletID: walletX,
		ToWalletID:   walletY,
		Amount:       d(500),
		Date:         day(2),
	})

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)

	assert.Len(t, repo.ordered(walletX), 1)
	assert.Empty(t, repo.ordered(walletY))
}

func TestService_TransferLegKindChangeRejected(t *testing.T) {
	walletX := uuid.New()
	walletY := uuid.New()
	repo := newMemRepo(walletX, walletY)
	svc := ledger.NewService(repo, false)

	mustCreate(t, svc, walletX, ledger.KindIncome, 1000, day(1))

	res, err := svc.Transfer(context.Background(), ledger.TransferParams{
		FromWalletID: walletX,
		ToWalletID:   walletY,
		Amount:       d(400),
		Date:         day(2),
	})
	require.NoError(t, err)

	kind := ledger.KindExpense

	_, err = svc.Update(context.Background(), res.Out.ID, ledger.UpdateParams{Kind: &kind})

	var invalid *ledger.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestService_AllowNegativePolicy(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, true)

	res := mustCreate(t, svc, walletID, ledger.KindExpense, 5000, day(1))
	assert.True(t, res.Transaction.Balance.Equal(d(-5000)))

	assertInvariant(t, repo, walletID)
}

func TestService_ReconcileMatchesIncrementalAndIsIdempotent(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)

	// A random but reproducible mix of creates, updates and deletes;
	// rejected mutations are fine, they must simply leave no trace.
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	var ids []uuid.UUID

	for i := 0; i < 60; i++ {
		switch op := rng.Intn(10); {
		case op < 6 || len(ids) == 0:
			kind := ledger.KindIncome
			if rng.Intn(2) == 0 {
				kind = ledger.KindExpense
			}

			res, err := svc.Create(ctx, ledger.CreateParams{
				WalletID: walletID,
				Kind:     kind,
				Amount:   d(int64(1 + rng.Intn(500))),
				Date:     day(1 + rng.Intn(28)),
			})
			if err == nil {
				ids = append(ids, res.Transaction.ID)
			}
		case op < 8:
			amount := d(int64(1 + rng.Intn(500)))
			date := day(1 + rng.Intn(28))

			_, _ = svc.Update(ctx, ids[rng.Intn(len(ids))], ledger.UpdateParams{
				Amount: &amount,
				Date:   &date,
			})
		default:
			id := ids[rng.Intn(len(ids))]
			if _, err := svc.Delete(ctx, id); err == nil {
				for i, known := range ids {
					if known == id {
						ids = append(ids[:i], ids[i+1:]...)
						break
					}
				}
			}
		}

		assertInvariant(t, repo, walletID)
	}

	incremental := repo.ordered(walletID)
	require.NotEmpty(t, incremental)

	// Equivalence: reconciliation must reproduce the incremental balances.
	rows, err := svc.Reconcile(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, len(incremental), rows)

	reconciled := repo.ordered(walletID)
	require.Len(t, reconciled, len(incremental))

	for i := range incremental {
		assert.True(t, incremental[i].Balance.Equal(reconciled[i].Balance),
			"entry %d: incremental %s, reconciled %s", i, incremental[i].Balance, reconciled[i].Balance)
	}

	// Idempotence: a second pass changes nothing.
	rowsAgain, err := svc.Reconcile(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, rows, rowsAgain)

	again := repo.ordered(walletID)
	for i := range reconciled {
		assert.True(t, reconciled[i].Balance.Equal(again[i].Balance))
	}
}

func TestService_BalanceQueries(t *testing.T) {
	walletID := uuid.New()
	repo := newMemRepo(walletID)
	svc := ledger.NewService(repo, false)
	ctx := context.Background()

	empty, err := svc.CurrentBalance(ctx, walletID)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	mustCreate(t, svc, walletID, ledger.KindIncome, 1000, day(1))
	mustCreate(t, svc, walletID, ledger.KindExpense, 300, day(10))

	current, err := svc.CurrentBalance(ctx, walletID)
	require.NoError(t, err)
	assert.True(t, current.Equal(d(700)))

	asOf, err := svc.BalanceAsOf(ctx, walletID, day(5))
	require.NoError(t, err)
	assert.True(t, asOf.Equal(d(1000)))

	before, err := svc.BalanceAsOf(ctx, walletID, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, before.IsZero())
}

func TestService_CreateValidation(t *testing.T) {
	type testCase struct {
		name      string
		params    ledger.CreateParams
		setupMock func(m *ledger.MockRepository)
		wantErr   error
	}

	walletID := uuid.New()

	tests := []testCase{
		{
			name: "UnknownKind",
			params: ledger.CreateParams{
				WalletID: walletID,
				Kind:     ledger.Kind("donation"),
				Amount:   d(10),
				Date:     day(1),
			},
		},
		{
			name: "ZeroAmount",
			params: ledger.CreateParams{
				WalletID: walletID,
				Kind:     ledger.KindIncome,
				Amount:   decimal.Zero,
				Date:     day(1),
			},
		},
		{
			name: "NegativeAmount",
			params: ledger.CreateParams{
				WalletID: walletID,
				Kind:     ledger.KindIncome,
				Amount:   d(-5),
				Date:     day(1),
			},
		},
		{
			name: "MissingDate",
			params: ledger.CreateParams{
				WalletID: walletID,
				Kind:     ledger.KindIncome,
				Amount:   d(5),
			},
		},
		{
			name: "WalletMissing",
			params: ledger.CreateParams{
				WalletID: walletID,
				Kind:     ledger.KindIncome,
				Amount:   d(5),
				Date:     day(1),
			},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().WalletExists(gomock.Any(), walletID).Return(false, nil)
			},
			wantErr: ledger.ErrNotFound,
		},
		{
			name: "WalletBusy",
			params: ledger.CreateParams{
				WalletID: walletID,
				Kind:     ledger.KindIncome,
				Amount:   d(5),
				Date:     day(1),
			},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().WalletExists(gomock.Any(), walletID).Return(true, nil)
				m.EXPECT().Begin(gomock.Any(), walletID).Return(nil, ledger.ErrWalletBusy)
			},
			wantErr: ledger.ErrWalletBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := ledger.NewService(repo, false)

			_, err := svc.Create(context.Background(), tt.params)
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			var invalid *ledger.InvalidInputError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestService_DeleteNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	id := uuid.New()

	repo.EXPECT().GetTransaction(gomock.Any(), id).Return(nil, ledger.ErrNotFound)

	svc := ledger.NewService(repo, false)

	_, err := svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
