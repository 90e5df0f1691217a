package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// 10 MB, matching the original upload controller limit.
const maxUploadBytes = 10 << 20

// HandleUploadMedia stores an uploaded file and derives a thumbnail.
func (h *Handlers) HandleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		respondError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading upload")
		return
	}
	if len(data) > maxUploadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds 10MB limit")
		return
	}

	media, err := h.media.Save(r.Context(), projectID(r), header.Filename, data)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest)
		return
	}
	respondData(w, http.StatusCreated, media)
}

// HandleGetMedia streams a stored object back by key.
func (h *Handlers) HandleGetMedia(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		respondError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}

	key := "media/" + projectID(r) + "/" + chi.URLParam(r, "object")
	data, contentType, err := h.media.Open(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
