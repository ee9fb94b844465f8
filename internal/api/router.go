package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/selfhq/self/internal/capture"
	"github.com/selfhq/self/internal/settings"
	"github.com/selfhq/self/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, receives item and backup progress events and serves
// GET /events inside the auth group.
func NewRouter(svc *capture.Service, prefs settings.Store, authEnabled bool, token string, events *sse.Broker) chi.Router {
	h := NewHandler(svc, prefs, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Items CRUD.
	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Get("/items/{id}", h.GetItem)
	r.Put("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.DeleteItem)
	r.Get("/items/{id}/file", h.GetItemFile)

	// Tags CRUD.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Put("/tags/{id}", h.UpdateTag)
	r.Delete("/tags/{id}", h.DeleteTag)

	// Search.
	r.Get("/search", h.Search)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)

	// Backup pipeline.
	r.Get("/backup/export", h.ExportBackup)
	r.Post("/backup/validate", h.ValidateBackup)
	r.Post("/backup/import", h.ImportBackup)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", http.HandlerFunc(events.ServeHTTP))
	}

	return r
}
