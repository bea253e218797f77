package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/masjidhub/masjidkas/internal/http/importcsv"
	ledgerHandler "github.com/masjidhub/masjidkas/internal/http/ledger"
	"github.com/masjidhub/masjidkas/internal/http/middleware"
	reportHandler "github.com/masjidhub/masjidkas/internal/http/report"
	walletHandler "github.com/masjidhub/masjidkas/internal/http/wallet"
)

func New(
	jwtSecret string,
	walletsV1 *walletHandler.Handler,
	transactionsV1 *ledgerHandler.Handler,
	importV1 *importcsv.Handler,
	reportsV1 *reportHandler.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		r.Route("/wallets", func(r chi.Router) {
			walletsV1.Routes(r)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(chimiddleware.AllowContentType("application/json"))
			walletsV1.CategoryRoutes(r)
		})

		r.Route("/owners", walletsV1.OwnerRoutes)

		r.Route("/transactions", func(r chi.Router) {
			r.Use(chimiddleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Use(chimiddleware.AllowContentType("application/json"))
			transactionsV1.TransferRoutes(r)
		})

		r.Route("/import", importV1.Routes)

		r.Route("/reports", reportsV1.Routes)
	})

	return router
}
