package wallet

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/http/middleware"
	"github.com/masjidhub/masjidkas/internal/http/response"
	"github.com/masjidhub/masjidkas/internal/ledger"
	"github.com/masjidhub/masjidkas/internal/wallet"
)

var validate = validator.New()

type Handler struct {
	svc *wallet.Service
	lgr *ledger.Service
}

func NewHandler(svc *wallet.Service, lgr *ledger.Service) *Handler {
	return &Handler{svc: svc, lgr: lgr}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/balance", h.balance)
	r.Post("/{id}/reconcile", h.reconcile)
}

func (h *Handler) CategoryRoutes(r chi.Router) {
	r.Post("/", h.createCategory)
	r.Get("/", h.listCategories)
	r.Delete("/{id}", h.deleteCategory)
}

func (h *Handler) OwnerRoutes(r chi.Router) {
	r.Get("/{id}/balances", h.ownerBalances)
}

type createWalletRequest struct {
	OwnerID        uuid.UUID       `json:"owner_id" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Type           wallet.Type     `json:"type" validate:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpeningDate    *time.Time      `json:"opening_date,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := middleware.UserID(r.Context())

	params := wallet.CreateParams{
		OwnerID:        req.OwnerID,
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
		RecordedBy:     userID,
	}
	if req.OpeningDate != nil {
		params.OpeningDate = *req.OpeningDate
	}

	wlt, err := h.svc.Create(r.Context(), params)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, toWalletResponse(wlt))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		http.Error(w, "owner_id query parameter is required", http.StatusBadRequest)
		return
	}

	wallets, err := h.svc.List(r.Context(), ownerID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toWalletResponseList(wallets))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	wlt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toWalletResponse(wlt))
}

type updateWalletRequest struct {
	Name *string      `json:"name,omitempty"`
	Type *wallet.Type `json:"type,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wlt, err := h.svc.Update(r.Context(), id, wallet.UpdateParams{
		Name: req.Name,
		Type: req.Type,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toWalletResponse(wlt))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	resp := balanceResponse{WalletID: id}

	if s := r.URL.Query().Get("as_of"); s != "" {
		asOf, err := parseDate(s)
		if err != nil {
			http.Error(w, "invalid as_of date", http.StatusBadRequest)
			return
		}

		resp.AsOf = &asOf

		resp.Balance, err = h.lgr.BalanceAsOf(r.Context(), id, asOf)
		if err != nil {
			response.Error(w, err)
			return
		}
	} else {
		resp.Balance, err = h.lgr.CurrentBalance(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rows, err := h.lgr.Reconcile(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, reconcileResponse{WalletID: id, RowsRecalculated: rows})
}

func (h *Handler) ownerBalances(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	balances, err := h.lgr.OwnerBalances(r.Context(), ownerID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toOwnerBalancesResponse(ownerID, balances))
}

type createCategoryRequest struct {
	OwnerID uuid.UUID           `json:"owner_id" validate:"required"`
	Name    string              `json:"name" validate:"required"`
	Kind    wallet.CategoryKind `json:"kind" validate:"required"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cat, err := h.svc.CreateCategory(r.Context(), wallet.CategoryParams{
		OwnerID: req.OwnerID,
		Name:    req.Name,
		Kind:    req.Kind,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, toCategoryResponse(cat))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		http.Error(w, "owner_id query parameter is required", http.StatusBadRequest)
		return
	}

	cats, err := h.svc.ListCategories(r.Context(), ownerID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toCategoryResponseList(cats))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	detached, err := h.svc.DeleteCategory(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, deleteCategoryResponse{Detached: detached})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	return time.Parse(time.RFC3339, s)
}
