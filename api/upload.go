package api

import (
	"errors"
	"net/http"

	"github.com/dynamicdna/academy/internal/upload"
)

type UploadHandler struct {
	svc *upload.Service
}

func NewUploadHandler(svc *upload.Service) *UploadHandler {
	return &UploadHandler{svc: svc}
}

type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Key     string `json:"key"`
}

// Upload accepts one multipart "file" from an admin.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	f, cleanup, err := upload.FromRequest(w, r, "file")
	defer cleanup()
	if err != nil {
		uploadError(w, r, err)
		return
	}

	res, err := h.svc.Save(r.Context(), f)
	if err != nil {
		uploadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, URL: res.URL, Key: res.Key})
}

func uploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 5MB")
	case errors.Is(err, upload.ErrNotImage):
		writeError(w, http.StatusBadRequest, "Only image files are allowed")
	case errors.Is(err, upload.ErrNoFile):
		writeError(w, http.StatusBadRequest, "No file uploaded")
	default:
		logger.Error("upload failed", "err", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
	}
}
