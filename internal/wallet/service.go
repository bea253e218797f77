package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=wallet
type Repository interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	ListWallets(ctx context.Context, ownerID uuid.UUID) ([]*Wallet, error)
	UpdateWallet(ctx context.Context, w *Wallet) error
	SoftDeleteWallet(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*Category, error)

	// DetachAndDeleteCategory nulls the category reference on every
	// transaction using it and soft-deletes the category, atomically.
	DetachAndDeleteCategory(ctx context.Context, id uuid.UUID) (int, error)
}

// Ledger is the slice of the ledger engine wallet management needs: recording
// the opening entry of a freshly created wallet.
type Ledger interface {
	Create(ctx context.Context, params ledger.CreateParams) (*ledger.MutationResult, error)
}

type Service struct {
	repo Repository
	lgr  Ledger
}

func NewService(repo Repository, lgr Ledger) *Service {
	return &Service{repo: repo, lgr: lgr}
}

type CreateParams struct {
	OwnerID uuid.UUID
	Name    string
	Type    Type

	// OpeningBalance, when positive, is recorded as an initial_balance
	// ledger entry dated OpeningDate.
	OpeningBalance decimal.Decimal
	OpeningDate    time.Time
	RecordedBy     uuid.UUID
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Wallet, error) {
	if params.Name == "" {
		return nil, &InvalidInputError{Field: "name", Reason: "required"}
	}

	if !params.Type.Valid() {
		return nil, &InvalidInputError{Field: "type", Reason: "must be one of cash, bank, ewallet, other"}
	}

	if params.OpeningBalance.IsNegative() {
		return nil, &InvalidInputError{Field: "opening_balance", Reason: "must not be negative"}
	}

	w := &Wallet{
		OwnerID: params.OwnerID,
		Name:    params.Name,
		Type:    params.Type,
	}
	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	if params.OpeningBalance.IsPositive() {
		openingDate := params.OpeningDate
		if openingDate.IsZero() {
			openingDate = w.CreatedAt
		}

		_, err := s.lgr.Create(ctx, ledger.CreateParams{
			WalletID:   w.ID,
			Kind:       ledger.KindInitialBalance,
			Amount:     params.OpeningBalance,
			Memo:       "opening balance",
			Date:       openingDate,
			RecordedBy: params.RecordedBy,
		})
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	return s.repo.GetWallet(ctx, id)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*Wallet, error) {
	return s.repo.ListWallets(ctx, ownerID)
}

type UpdateParams struct {
	Name *string
	Type *Type
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, changes UpdateParams) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}

	if changes.Name != nil {
		if *changes.Name == "" {
			return nil, &InvalidInputError{Field: "name", Reason: "required"}
		}

		w.Name = *changes.Name
	}

	if changes.Type != nil {
		if !changes.Type.Valid() {
			return nil, &InvalidInputError{Field: "type", Reason: "must be one of cash, bank, ewallet, other"}
		}

		w.Type = *changes.Type
	}

	if err := s.repo.UpdateWallet(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// Delete soft-deletes a wallet. Its transactions are kept so historical
// statements remain reproducible.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetWallet(ctx, id); err != nil {
		return err
	}

	return s.repo.SoftDeleteWallet(ctx, id)
}

type CategoryParams struct {
	OwnerID uuid.UUID
	Name    string
	Kind    CategoryKind
}

func (s *Service) CreateCategory(ctx context.Context, params CategoryParams) (*Category, error) {
	if params.Name == "" {
		return nil, &InvalidInputError{Field: "name", Reason: "required"}
	}

	if !params.Kind.Valid() {
		return nil, &InvalidInputError{Field: "kind", Reason: "must be income or expense"}
	}

	c := &Category{
		OwnerID: params.OwnerID,
		Name:    params.Name,
		Kind:    params.Kind,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*Category, error) {
	return s.repo.ListCategories(ctx, ownerID)
}

// DeleteCategory soft-deletes a category after detaching it from every
// transaction that references it. Returns the number of detached rows.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) (int, error) {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return 0, err
	}

	return s.repo.DetachAndDeleteCategory(ctx, id)
}
