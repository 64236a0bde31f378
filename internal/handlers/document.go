package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/diewo77/jsign/auth"
	"github.com/diewo77/jsign/httpx"
	"github.com/diewo77/jsign/internal/files"
	"github.com/diewo77/jsign/internal/services"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	svc   *services.DocumentService
	store *files.Store
}

func NewDocumentHandler(svc *services.DocumentService, store *files.Store) *DocumentHandler {
	return &DocumentHandler{svc: svc, store: store}
}

func pathID(r *http.Request) (uint, bool) {
	id64, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// writeServiceError maps service sentinels to the API's error contract.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "You have already acknowledged this document")
	case errors.Is(err, services.ErrUnsupportedType):
		httpx.JSONError(w, http.StatusBadRequest, "Unsupported file type")
	case errors.Is(err, services.ErrConversionFailed):
		httpx.JSONError(w, http.StatusInternalServerError, "File conversion to PDF failed")
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	docs, err := h.svc.List(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *DocumentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Document not found")
		return
	}
	detail, err := h.svc.Detail(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "No file part")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		httpx.JSONError(w, http.StatusBadRequest, "No selected file")
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	special := r.FormValue("special_requirements")
	if err := h.svc.Upload(r.Context(), uid, header.Filename, file, special); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSONMessage(w, http.StatusCreated, "File processed successfully")
}

func (h *DocumentHandler) Sign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Document not found")
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.svc.Acknowledge(r.Context(), uid, id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Document acknowledged successfully")
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err := h.svc.SoftDelete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSONMessage(w, http.StatusOK, "Document deleted successfully")
}

// Download streams the stored file as an attachment under its display name.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "Document not found")
		return
	}
	path, name, err := h.svc.DownloadPath(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// ServeUpload serves a stored file by its storage key.
func (h *DocumentHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	path, err := h.store.Path(r.PathValue("filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
