package ledger

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
)

var validate = validator.New()

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) TransferRoutes(r chi.Router) {
	r.Post("/", h.transfer)
}

type createTransactionRequest struct {
	WalletID   uuid.UUID       `json:"wallet_id" validate:"required"`
	Kind       ledger.Kind     `json:"transaction_type" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Memo       string          `json:"memo"`
	Date       time.Time       `json:"transaction_date" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := middleware.UserID(r.Context())

	res, err := h.svc.Create(r.Context(), ledger.CreateParams{
		WalletID:   req.WalletID,
		Kind:       req.Kind,
		Amount:     req.Amount,
		CategoryID: req.CategoryID,
		Memo:       req.Memo,
		Date:       req.Date,
		RecordedBy: userID,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, toMutationResponse(res))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	walletID, err := uuid.Parse(r.URL.Query().Get("wallet_id"))
	if err != nil {
		http.Error(w, "wallet_id query parameter is required", http.StatusBadRequest)
		return
	}

	filter := ledger.ListFilter{}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "invalid start_date", http.StatusBadRequest)
			return
		}

		filter.StartDate = &t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}

		filter.EndDate = &t
	}

	txs, err := h.svc.List(r.Context(), walletID, filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toTransactionResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toTransactionResponse(tx))
}

type updateTransactionRequest struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Kind          *ledger.Kind     `json:"transaction_type,omitempty"`
	Date          *time.Time       `json:"transaction_date,omitempty"`
	Memo          *string          `json:"memo,omitempty"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	ClearCategory bool             `json:"clear_category,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Update(r.Context(), id, ledger.UpdateParams{
		Amount:        req.Amount,
		Kind:          req.Kind,
		Date:          req.Date,
		Memo:          req.Memo,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toMutationResponse(res))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, deleteResponse{
		ID:             id,
		SuffixRewrites: res.SuffixRewrites,
	})
}

type transferRequest struct {
	FromWalletID uuid.UUID       `json:"from_wallet_id" validate:"required"`
	ToWalletID   uuid.UUID       `json:"to_wallet_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	Memo         string          `json:"memo"`
	Date         time.Time       `json:"transaction_date" validate:"required"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := middleware.UserID(r.Context())

	res, err := h.svc.Transfer(r.Context(), ledger.TransferParams{
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		Amount:       req.Amount,
		CategoryID:   req.CategoryID,
		Memo:         req.Memo,
		Date:         req.Date,
		RecordedBy:   userID,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, transferResponse{
		Out: toTransactionResponse(res.Out),
		In:  toTransactionResponse(res.In),
	})
}
