package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptpad/internal/promptservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *promptservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/prompts", func(r chi.Router) {
		r.Get("/", h.ListPrompts)
		r.Post("/", h.CreatePrompt)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetPrompt)
			r.Patch("/", h.UpdatePrompt)
			r.Delete("/", h.DeletePrompt)
			r.Get("/content", h.GetContent)
			r.Post("/usage", h.RecordUsage)
			r.Post("/paste", h.Paste)
		})
	})
	r.Post("/focus/capture", h.CaptureFocus)

	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)

	r.Get("/index", h.GetIndex)
	r.Post("/index/rebuild", h.RebuildIndex)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	r.Get("/search", h.Search)

	r.Post("/import", h.ImportMarkdown)
	r.Post("/import/bulk", h.ImportBulk)
	r.Get("/export", h.Export)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
