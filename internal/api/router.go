package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jesperbk/kontoflow/internal/repository"
)

// NewRouter creates the Chi router serving the staging table. The API is
// read-only; rows only enter the table through the load command.
func NewRouter(repo *repository.StagingRepo) http.Handler {
	h := &Handlers{repo: repo}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{hash}", h.GetTransaction)
		r.Get("/summary", h.GetSummary)
		r.Get("/summary/monthly", h.GetMonthlySummary)
		r.Get("/sources", h.ListSources)
	})

	return r
}
