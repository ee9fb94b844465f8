package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/selfhq/self/internal/apperr"
	"github.com/selfhq/self/internal/capture"
	"github.com/selfhq/self/internal/models"
	"github.com/selfhq/self/internal/settings"
	"github.com/selfhq/self/internal/sse"
	"github.com/selfhq/self/internal/store"
)

// modelType converts the optional wire type string; validation happens in the
// service layer.
func modelType(s string) models.ItemType {
	return models.ItemType(s)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *capture.Service
	prefs  settings.Store
	events *sse.Broker // nil disables event publishing
}

// NewHandler creates a new Handler.
func NewHandler(svc *capture.Service, prefs settings.Store, events *sse.Broker) *Handler {
	return &Handler{svc: svc, prefs: prefs, events: events}
}

func (h *Handler) publishItemEvent(kind, id string) {
	if h.events != nil {
		h.events.PublishItemEvent(kind, id)
	}
}

func (h *Handler) publishTagEvent(kind, id string) {
	if h.events != nil {
		h.events.Publish(sse.Event{Type: "tag." + kind, Data: map[string]string{"id": id}})
	}
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListItems handles GET /api/items with pagination and filtering.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	f := store.ItemFilter{
		Limit:  limit,
		Offset: offset,
		TagID:  q.Get("tag"),
		Type:   modelType(q.Get("type")),
	}
	if v := q.Get("favorite"); v != "" {
		fav := v == "true" || v == "1"
		f.Favorite = &fav
	}

	items, total, err := h.svc.ListItems(r.Context(), f)
	if err != nil {
		writeServiceError(w, err, "list items")
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items, Total: total})
}

// GetItem handles GET /api/items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /api/items. A JSON body creates a text/link item;
// a multipart form (field "file") creates an item with an attachment.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createItemMultipart(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	item, err := h.svc.CreateItem(r.Context(), capture.ItemInput{
		Type:        modelType(req.Type),
		Content:     req.Content,
		HTMLContent: req.HTMLContent,
		Title:       req.Title,
		Tags:        req.Tags,
		IsFavorite:  req.IsFavorite,
		IsEncrypted: req.IsEncrypted,
		IsCode:      req.IsCode,
	}, nil)
	if err != nil {
		writeServiceError(w, err, "create item")
		return
	}
	h.publishItemEvent("created", item.ID)
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/items/{id}. Absent fields keep their value.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	current, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "update item")
		return
	}
	in := capture.ItemInput{
		Content:     current.Content,
		HTMLContent: current.HTMLContent,
		Title:       current.Title,
		Tags:        current.Tags,
		IsFavorite:  current.IsFavorite,
		IsEncrypted: current.IsEncrypted,
		IsCode:      current.IsCode,
	}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.HTMLContent != nil {
		in.HTMLContent = *req.HTMLContent
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}
	if req.IsFavorite != nil {
		in.IsFavorite = *req.IsFavorite
	}
	if req.IsCode != nil {
		in.IsCode = *req.IsCode
	}

	item, err := h.svc.UpdateItem(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err, "update item")
		return
	}
	h.publishItemEvent("updated", item.ID)
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteItem(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete item")
		return
	}
	h.publishItemEvent("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, err, "list tags")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// CreateTag handles POST /api/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	tag, err := h.svc.CreateTag(r.Context(), capture.TagInput{
		Name:         req.Name,
		Color:        req.Color,
		AutoKeywords: req.AutoKeywords,
	})
	if err != nil {
		writeServiceError(w, err, "create tag")
		return
	}
	h.publishTagEvent("created", tag.ID)
	writeJSON(w, http.StatusCreated, tag)
}

// UpdateTag handles PUT /api/tags/{id}.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	tag, err := h.svc.UpdateTag(r.Context(), id, capture.TagInput{
		Name:         req.Name,
		Color:        req.Color,
		AutoKeywords: req.AutoKeywords,
	})
	if err != nil {
		writeServiceError(w, err, "update tag")
		return
	}
	h.publishTagEvent("updated", tag.ID)
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteTag(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete tag")
		return
	}
	h.publishTagEvent("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, err, "search")
		return
	}
	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResult{ID: res.ID, Title: res.Title, Snippet: res.Snippet})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.prefs.All()
	if err != nil {
		slog.Error("read settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// PutSettings handles PUT /api/settings, replacing the provided keys.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	for k, v := range req {
		if err := h.prefs.Set(k, v); err != nil {
			slog.Error("write settings failed", slog.String("key", k), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
	}
	all, err := h.prefs.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, all)
}
