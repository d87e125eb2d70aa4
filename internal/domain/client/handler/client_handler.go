package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/client"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/ledger"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ClientHandler serves clients, their line sets and statements.
type ClientHandler struct {
	svc    *client.Service
	logger *slog.Logger
}

// NewClientHandler creates a new client handler
func NewClientHandler(svc *client.Service, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{svc: svc, logger: logger}
}

// Register mounts the client routes on mux.
func (h *ClientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /clients", h.CreateClient)
	mux.HandleFunc("GET /clients", h.ListClients)
	mux.HandleFunc("GET /clients/{id}", h.GetClient)
	mux.HandleFunc("PUT /clients/{id}/regulation", h.SetRegulation)
	mux.HandleFunc("GET /clients/{id}/lines", h.ListLines)
	mux.HandleFunc("POST /clients/{id}/lines", h.AddLine)
	mux.HandleFunc("PATCH /clients/{id}/lines/{lineID}", h.EditLine)
	mux.HandleFunc("DELETE /clients/{id}/lines/{lineID}", h.DeleteLine)
	mux.HandleFunc("GET /clients/{id}/statement", h.GetStatement)
	mux.HandleFunc("GET /clients/{id}/statement.xlsx", h.ExportStatement)
	mux.HandleFunc("GET /clients/{id}/findings", h.GetFindings)
}

// CreateClient handles POST /clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Currency   string `json:"currency"`
		Regulation string `json:"regulation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.svc.Create(r.Context(), req.Name, req.Currency, req.Regulation)
	if err != nil {
		h.writeServiceError(w, "create client", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// ListClients handles GET /clients
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "list clients", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"clients": clients,
		"count":   len(clients),
	})
}

// GetClient handles GET /clients/{id}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "get client", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// SetRegulation handles PUT /clients/{id}/regulation
func (h *ClientHandler) SetRegulation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Regulation string `json:"regulation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.svc.SetRegulation(r.Context(), id, req.Regulation)
	if err != nil {
		h.writeServiceError(w, "set regulation", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// ListLines handles GET /clients/{id}/lines
func (h *ClientHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lines, err := h.svc.Lines(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "list lines", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"lines": lines,
		"count": len(lines),
	})
}

// AddLine handles POST /clients/{id}/lines
func (h *ClientHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	line, err := h.svc.AddLine(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "add line", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, line)
}

// EditLine handles PATCH /clients/{id}/lines/{lineID}. The body carries one
// field name and its new value as text.
func (h *ClientHandler) EditLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	line, err := h.svc.EditLine(r.Context(), id, lineID, req.Field, req.Value)
	if err != nil {
		h.writeServiceError(w, "edit line", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, line)
}

// DeleteLine handles DELETE /clients/{id}/lines/{lineID}
func (h *ClientHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}
	if err := h.svc.DeleteLine(r.Context(), id, lineID); err != nil {
		h.writeServiceError(w, "delete line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatement handles GET /clients/{id}/statement
func (h *ClientHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	_, st, err := h.svc.Statement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "build statement", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, st)
}

// ExportStatement handles GET /clients/{id}/statement.xlsx
func (h *ClientHandler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(r.Context(), id, &buf); err != nil {
		h.writeServiceError(w, "export statement", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "balance-sheet-"+id.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to stream workbook", slog.Any("error", err))
	}
}

// GetFindings handles GET /clients/{id}/findings
func (h *ClientHandler) GetFindings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	findings, err := h.svc.Findings(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "check lines", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"findings": findings,
		"balanced": len(findings) == 0,
	})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue(name)))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound), errors.Is(err, client.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, client.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, client.ErrNameRequired),
		errors.Is(err, ledger.ErrUnknownField),
		errors.Is(err, ledger.ErrInvalidValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *ClientHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("failed to "+op, slog.Any("error", err))
		middleware.WriteError(w, status, "failed to "+op)
		return
	}
	middleware.WriteError(w, status, err.Error())
}
