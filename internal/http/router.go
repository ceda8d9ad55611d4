package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/gastos/internal/http/auth"
	"github.com/MrJamesThe3rd/gastos/internal/http/expense"
	"github.com/MrJamesThe3rd/gastos/internal/http/household"
)

type Options struct {
	// Verifier authenticates /api/v1. Nil leaves the API open, as in offline mode.
	Verifier       *auth.Verifier
	AllowedOrigins []string
}

// New builds the API router. householdV1 may be nil when no store backs households.
func New(opts Options, expensesV1 *expense.Handler, householdV1 *household.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Verifier != nil {
			r.Use(opts.Verifier.Middleware)
		}

		r.Route("/expenses", expensesV1.Routes)

		if householdV1 != nil {
			r.Route("/household", householdV1.Routes)
		}
	})

	return router
}
