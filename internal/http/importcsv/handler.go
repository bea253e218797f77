package importcsv

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/masjidhub/masjidkas/internal/http/middleware"
	"github.com/masjidhub/masjidkas/internal/http/response"
	"github.com/masjidhub/masjidkas/internal/importer"
	"github.com/masjidhub/masjidkas/internal/ledger"
)

type Handler struct {
	svc *importer.Service
}

func NewHandler(svc *importer.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importStatement)
}

type importResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type partialImportResponse struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	walletID, err := uuid.Parse(r.FormValue("wallet_id"))
	if err != nil {
		http.Error(w, "wallet_id field is required", http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatBankCSV
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	userID, _ := middleware.UserID(r.Context())

	result, err := h.svc.Import(r.Context(), importer.ImportParams{
		WalletID:   walletID,
		RecordedBy: userID,
		Format:     format,
	}, file)
	if err != nil {
		// A rejected row aborts the rest of the statement but the rows
		// before it are already committed; report both.
		var insufficient *ledger.InsufficientFundsError
		if result != nil && errors.As(err, &insufficient) {
			response.JSON(w, http.StatusUnprocessableEntity, partialImportResponse{
				Imported: result.Imported,
				Skipped:  result.Skipped,
				Error:    err.Error(),
			})

			return
		}

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	response.JSON(w, http.StatusCreated, importResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
	})
}
