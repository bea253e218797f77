package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

type Ledger interface {
	Reconcile(ctx context.Context, walletID uuid.UUID) (int, error)
}

type Repository interface {
	WalletIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Report summarizes one sweep pass over every wallet.
type Report struct {
	WalletsSwept     int
	RowsRecalculated int
	Busy             int
	Failed           int
}

// Service periodically reconciles every wallet's running balances. Wallets
// that are locked by an in-flight mutation are skipped, not waited on; they
// get picked up on the next pass.
type Service struct {
	repo    Repository
	lgr     Ledger
	workers int
}

func NewService(repo Repository, lgr Ledger, workers int) *Service {
	if workers < 1 {
		workers = 1
	}

	return &Service{repo: repo, lgr: lgr, workers: workers}
}

func (s *Service) Run(ctx context.Context) (*Report, error) {
	ids, err := s.repo.WalletIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}

	var mu sync.Mutex

	rep := &Report{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, id := range ids {
		g.Go(func() error {
			rows, err := s.lgr.Reconcile(ctx, id)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case errors.Is(err, ledger.ErrWalletBusy):
				rep.Busy++

				slog.Debug("wallet busy, skipping", "wallet_id", id)
			case err != nil:
				rep.Failed++

				slog.Error("reconcile failed", "wallet_id", id, "error", err)
			default:
				rep.WalletsSwept++
				rep.RowsRecalculated += rows
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return rep, err
	}

	return rep, nil
}
