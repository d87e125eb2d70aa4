package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/classification"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/client"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/extractor"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/service"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/middleware"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/storage"
)

const uploadField = "file"

// ImportHandler accepts uploaded ledger documents.
type ImportHandler struct {
	svc            *service.ImportService
	storage        storage.Storage // Optional: uploads are not kept when nil
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(svc *service.ImportService, store storage.Storage, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		svc:            svc,
		storage:        store,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Register mounts the import routes on mux.
func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /imports/analyze", h.Analyze)
	mux.HandleFunc("POST /clients/{id}/imports", h.Import)
	mux.HandleFunc("GET /clients/{id}/imports", h.ListUploads)
	mux.HandleFunc("GET /clients/{id}/imports/{fileID}", h.DownloadUpload)
	mux.HandleFunc("DELETE /clients/{id}/imports/{fileID}", h.DeleteUpload)
	mux.HandleFunc("POST /clients/{id}/reclassify", h.Reclassify)
}

// Analyze handles POST /imports/analyze
func (h *ImportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	src, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Analyze(r.Context(), src)
	if err != nil {
		h.writeServiceError(w, "analyze file", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Import handles POST /clients/{id}/imports. The uploaded document replaces
// the client's line set and is kept in storage once the import succeeds.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	src, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Import(r.Context(), id, src)
	if err != nil {
		h.writeServiceError(w, "import file", err)
		return
	}

	resp := map[string]any{"import": result}
	if h.storage != nil {
		info, err := h.storage.Save(r.Context(), id, src.Filename, src.ContentType, bytes.NewReader(src.Data))
		if err != nil {
			h.logger.Warn("failed to store upload",
				slog.String("client_id", id.String()),
				slog.String("filename", src.Filename),
				slog.Any("error", err),
			)
		} else {
			resp["file"] = info
		}
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ListUploads handles GET /clients/{id}/imports
func (h *ImportHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	files := []*storage.FileInfo{}
	if h.storage != nil {
		list, err := h.storage.List(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, "list uploads", err)
			return
		}
		files = append(files, list...)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"count": len(files),
	})
}

// DownloadUpload handles GET /clients/{id}/imports/{fileID}
func (h *ImportHandler) DownloadUpload(w http.ResponseWriter, r *http.Request) {
	id, fileID, ok := uploadIDs(w, r)
	if !ok {
		return
	}
	if h.storage == nil {
		middleware.WriteError(w, http.StatusNotFound, storage.ErrFileNotFound.Error())
		return
	}

	rc, info, err := h.storage.Open(r.Context(), id, fileID)
	if err != nil {
		h.writeServiceError(w, "open upload", err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream upload",
			slog.String("client_id", id.String()),
			slog.String("file_id", fileID.String()),
			slog.Any("error", err),
		)
	}
}

// DeleteUpload handles DELETE /clients/{id}/imports/{fileID}
func (h *ImportHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	id, fileID, ok := uploadIDs(w, r)
	if !ok {
		return
	}
	if h.storage == nil {
		middleware.WriteError(w, http.StatusNotFound, storage.ErrFileNotFound.Error())
		return
	}

	if err := h.storage.Delete(r.Context(), id, fileID); err != nil {
		h.writeServiceError(w, "delete upload", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reclassify handles POST /clients/{id}/reclassify
func (h *ImportHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Reclassify(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "reclassify lines", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *ImportHandler) readUpload(w http.ResponseWriter, r *http.Request) (service.Source, bool) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return service.Source{}, false
		}
		middleware.WriteError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return service.Source{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "failed to read upload")
		return service.Source{}, false
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusUnprocessableEntity, sniffer.ErrEmptyFile.Error())
		return service.Source{}, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return service.Source{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func uploadIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	fileID, err := uuid.Parse(strings.TrimSpace(r.PathValue("fileID")))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid file id")
		return uuid.Nil, uuid.Nil, false
	}
	return id, fileID, true
}

// StatusFor maps import errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound),
		errors.Is(err, storage.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, extractor.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extractor.ErrNoUsableRows),
		errors.Is(err, extractor.ErrNoSheet),
		errors.Is(err, sniffer.ErrNoHeadersFound),
		errors.Is(err, sniffer.ErrEmptyFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, classification.ErrOracleUnavailable),
		errors.Is(err, classification.ErrMalformedOracleOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *ImportHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("failed to "+op, slog.Any("error", err))
		middleware.WriteError(w, status, "failed to "+op)
	case http.StatusBadGateway:
		h.logger.Warn("oracle failed", slog.String("op", op), slog.Any("error", err))
		middleware.WriteError(w, status, "classification service failed: try the import again")
	default:
		middleware.WriteError(w, status, err.Error())
	}
}
