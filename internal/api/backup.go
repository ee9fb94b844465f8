package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/selfhq/self/internal/archive"
)

const maxArchiveBytes = 500 << 20 // 500 MB

// progressFunc returns a ProgressFunc that feeds the SSE broker, or nil when
// no broker is wired.
func (h *Handler) progressFunc() archive.ProgressFunc {
	if h.events == nil {
		return nil
	}
	return h.events.PublishProgress
}

// readArchive extracts archive bytes from the request: either a raw body or
// a multipart form with a "file" field.
func readArchive(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxArchiveBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxArchiveBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("archive too large or invalid multipart"))
			return nil, false
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return nil, false
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read archive"))
			return nil, false
		}
		return data, true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read archive"))
		return nil, false
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("empty archive body"))
		return nil, false
	}
	return data, true
}

// ExportBackup handles GET /api/backup/export, returning the full data set
// as a downloadable zip archive.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportArchive(r.Context(), h.progressFunc())
	if err != nil {
		slog.Error("backup export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("export failed"))
		return
	}

	filename := "self-backup-" + time.Now().UTC().Format("2006-01-02") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ValidateBackup handles POST /api/backup/validate. It never writes to the
// store; the response carries the structural report either way.
func (h *Handler) ValidateBackup(w http.ResponseWriter, r *http.Request) {
	data, ok := readArchive(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ValidateArchive(data))
}

// ImportBackup handles POST /api/backup/import. Partial failures surface in
// the result's errors list with a 200 status; only transport-level problems
// produce an error status.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	data, ok := readArchive(w, r)
	if !ok {
		return
	}
	res := h.svc.ImportArchive(r.Context(), data, h.progressFunc())
	writeJSON(w, http.StatusOK, res)
}
