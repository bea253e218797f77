package report

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/http/response"
	"github.com/masjidhub/masjidkas/internal/ledger"
	"github.com/masjidhub/masjidkas/internal/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/categories", h.categories)
	r.Get("/export", h.export)
}

type categoryTotalResponse struct {
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name"`
	Kind         ledger.Kind     `json:"kind"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	walletID, filter, ok := h.queryParams(w, r)
	if !ok {
		return
	}

	totals, err := h.svc.CategorySummary(r.Context(), walletID, filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	resp := make([]categoryTotalResponse, len(totals))
	for i, t := range totals {
		resp[i] = categoryTotalResponse{
			CategoryID:   t.CategoryID,
			CategoryName: t.CategoryName,
			Kind:         t.Kind,
			Total:        t.Total,
			Count:        t.Count,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	walletID, filter, ok := h.queryParams(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"ledger_%s_%s.csv\"", walletID, time.Now().Format("20060102")))

	if _, err := h.svc.ExportCSV(r.Context(), w, walletID, filter); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("ledger export failed", "wallet_id", walletID, "error", err)
	}
}

func (h *Handler) queryParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, ledger.ListFilter, bool) {
	walletID, err := uuid.Parse(r.URL.Query().Get("wallet_id"))
	if err != nil {
		http.Error(w, "wallet_id query parameter is required", http.StatusBadRequest)
		return uuid.Nil, ledger.ListFilter{}, false
	}

	filter := ledger.ListFilter{}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "invalid start_date", http.StatusBadRequest)
			return uuid.Nil, ledger.ListFilter{}, false
		}

		filter.StartDate = &t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return uuid.Nil, ledger.ListFilter{}, false
		}

		filter.EndDate = &t
	}

	return walletID, filter, true
}
