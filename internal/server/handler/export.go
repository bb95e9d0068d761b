package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// ExportService defines the methods the export handler requires.
type ExportService interface {
	ExportLedger(ctx context.Context, before time.Time) (string, int64, error)
	ListExports(ctx context.Context) ([]domain.BlobInfo, error)
}

// ExportHandler serves ledger export endpoints.
type ExportHandler struct {
	exports ExportService
	logger  *slog.Logger
}

// NewExportHandler creates an ExportHandler with the given service and logger.
func NewExportHandler(exports ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{exports: exports, logger: logger}
}

type exportRequest struct {
	Before string `json:"before"` // RFC 3339; defaults to now
}

// TriggerExport snapshots the ledger to cold storage.
// POST /api/exports
func (h *ExportHandler) TriggerExport(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty body exports everything up to now.
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	before := time.Now().UTC()
	if req.Before != "" {
		parsed, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC 3339")
			return
		}
		before = parsed
	}

	path, count, err := h.exports.ExportLedger(r.Context(), before)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: export failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"path":   path,
		"events": count,
	})
}

// ListExports enumerates past exports.
// GET /api/exports
func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	infos, err := h.exports.ListExports(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list exports failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": infos})
}
