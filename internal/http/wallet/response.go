package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
	"github.com/masjidhub/masjidkas/internal/wallet"
)

type walletResponse struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Name      string      `json:"name"`
	Type      wallet.Type `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

func toWalletResponse(w *wallet.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Name:      w.Name,
		Type:      w.Type,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func toWalletResponseList(wallets []*wallet.Wallet) []walletResponse {
	resp := make([]walletResponse, len(wallets))
	for i, w := range wallets {
		resp[i] = toWalletResponse(w)
	}

	return resp
}

type categoryResponse struct {
	ID        uuid.UUID           `json:"id"`
	OwnerID   uuid.UUID           `json:"owner_id"`
	Name      string              `json:"name"`
	Kind      wallet.CategoryKind `json:"kind"`
	CreatedAt time.Time           `json:"created_at"`
}

func toCategoryResponse(c *wallet.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Kind:      c.Kind,
		CreatedAt: c.CreatedAt,
	}
}

func toCategoryResponseList(cats []*wallet.Category) []categoryResponse {
	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = toCategoryResponse(c)
	}

	return resp
}

type deleteCategoryResponse struct {
	Detached int `json:"detached_transactions"`
}

type balanceResponse struct {
	WalletID uuid.UUID       `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	AsOf     *time.Time      `json:"as_of,omitempty"`
}

type reconcileResponse struct {
	WalletID         uuid.UUID `json:"wallet_id"`
	RowsRecalculated int       `json:"rows_recalculated"`
}

type walletBalanceResponse struct {
	WalletID   uuid.UUID       `json:"wallet_id"`
	WalletName string          `json:"wallet_name"`
	WalletType string          `json:"wallet_type"`
	Balance    decimal.Decimal `json:"balance"`
}

type ownerBalancesResponse struct {
	OwnerID uuid.UUID               `json:"owner_id"`
	Total   decimal.Decimal         `json:"total"`
	Wallets []walletBalanceResponse `json:"wallets"`
}

func toOwnerBalancesResponse(ownerID uuid.UUID, balances []ledger.WalletBalance) ownerBalancesResponse {
	resp := ownerBalancesResponse{
		OwnerID: ownerID,
		Wallets: make([]walletBalanceResponse, len(balances)),
	}

	for i, b := range balances {
		resp.Wallets[i] = walletBalanceResponse{
			WalletID:   b.WalletID,
			WalletName: b.WalletName,
			WalletType: b.WalletType,
			Balance:    b.Balance,
		}
		resp.Total = resp.Total.Add(b.Balance)
	}

	return resp
}
