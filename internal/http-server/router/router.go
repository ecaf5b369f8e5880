package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"catalog-ingest/internal/http-server/handler/catalog"
	"catalog-ingest/internal/http-server/handler/ingest"
	"catalog-ingest/internal/http-server/middleware"
)

type Handler struct {
	IngestHandler  *ingest.IngestHandler
	CatalogHandler *catalog.CatalogHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/ingest", func(r chi.Router) {
			r.Post("/sessions", h.IngestHandler.OpenSession)
			r.Post("/sessions/{id}/viewport", h.IngestHandler.ViewportEvent)
			r.Post("/sessions/{id}/confirm", h.IngestHandler.Confirm)
			r.Delete("/sessions/{id}", h.IngestHandler.CancelSession)
			r.Get("/slots/{id}", h.IngestHandler.SlotStatus)
			r.Post("/analyze", h.IngestHandler.Analyze)
		})

		r.Get("/categories", h.CatalogHandler.ListCategories)
		r.Post("/products", h.CatalogHandler.CreateProduct)
		r.Post("/blogs", h.CatalogHandler.CreateBlog)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	return r
}
