package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/selfhq/self/internal/capture"
)

const maxUploadBytes = 50 << 20 // 50 MB

// createItemMultipart handles POST /api/items with multipart/form-data.
// The binary payload goes in field "file"; the remaining item fields come
// from ordinary form values.
func (h *Handler) createItemMultipart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	in := capture.ItemInput{
		Type:    modelType(r.FormValue("type")),
		Content: r.FormValue("content"),
		Title:   r.FormValue("title"),
	}
	if tags := r.FormValue("tags"); tags != "" {
		in.Tags = strings.Split(tags, ",")
	}
	if in.Content == "" {
		in.Content = header.Filename
	}

	item, err := h.svc.CreateItem(r.Context(), in, &capture.Upload{
		Data:     data,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeServiceError(w, err, "create item")
		return
	}
	h.publishItemEvent("created", item.ID)
	writeJSON(w, http.StatusCreated, item)
}

// GetItemFile handles GET /api/items/{id}/file, serving the attachment bytes
// with the stored content type and filename.
func (h *Handler) GetItemFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get item file")
		return
	}
	if !item.HasAttachment() {
		writeJSON(w, http.StatusNotFound, errorBody("item has no attachment"))
		return
	}
	data, err := h.svc.ReadAttachment(r.Context(), item.AttachmentKey)
	if err != nil {
		writeServiceError(w, err, "read attachment")
		return
	}
	if item.MimeType != "" {
		w.Header().Set("Content-Type", item.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if item.FileName != "" {
		w.Header().Set("Content-Disposition", `inline; filename="`+item.FileName+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
