package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/bank"
	"github.com/MrJamesThe3rd/tally/internal/http/imports"
	"github.com/MrJamesThe3rd/tally/internal/http/mapping"
	"github.com/MrJamesThe3rd/tally/internal/http/transaction"
)

func New(
	allowedOrigins []string,
	verifier *auth.Verifier,
	banksV1 *bank.Handler,
	importV1 *imports.Handler,
	mappingsV1 *mapping.Handler,
	transactionsV1 *transaction.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Route("/banks", banksV1.Routes)

		r.Route("/import", importV1.Routes)

		r.Route("/mappings", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			mappingsV1.Routes(r)
		})

		r.Route("/transactions", transactionsV1.Routes)
	})

	return router
}
