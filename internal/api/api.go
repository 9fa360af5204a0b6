// Package api exposes check runs over HTTP: submit a batch of titles,
// poll the run, cancel it, or download the results.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/check"
	"github.com/dealscout/dealscout/internal/export"
)

// Handler serves the check API, delegating orchestration to the service.
type Handler struct {
	checks *check.Service
}

// NewHandler constructs a Handler.
func NewHandler(checks *check.Service) *Handler {
	return &Handler{checks: checks}
}

// Routes mounts the check API onto the router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/checks", func(r chi.Router) {
		r.Post("/", h.createCheck)
		r.Route("/{checkID}", func(r chi.Router) {
			r.Get("/", h.getCheck)
			r.Post("/cancel", h.cancelCheck)
			r.Get("/export", h.exportCheck)
		})
	})
}

func (h *Handler) createCheck(w http.ResponseWriter, r *http.Request) {
	var req createCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	run, err := h.checks.Create(r.Context(), check.CreateRequest{
		Mode:    check.Mode(req.Mode),
		Names:   req.Names,
		User:    req.WishlistUser,
		Country: req.Country,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createCheckResponse{ID: run.ID})
}

func (h *Handler) getCheck(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checks.Get(chi.URLParam(r, "checkID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckResponse(snap))
}

func (h *Handler) cancelCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "checkID")
	if err := h.checks.Cancel(id); err != nil {
		writeServiceError(w, err)
		return
	}

	snap, err := h.checks.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckResponse(snap))
}

func (h *Handler) exportCheck(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checks.Get(chi.URLParam(r, "checkID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	// Body writing has begun by the time an export error can surface, so
	// failures are only logged.
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(snap, "csv"))
		if err := export.WriteCSV(w, snap); err != nil {
			zctx.From(r.Context()).Error("Write CSV export", zap.String("run_id", snap.ID), zap.Error(err))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", attachment(snap, "xlsx"))
		if err := export.WriteXLSX(w, snap); err != nil {
			zctx.From(r.Context()).Error("Write workbook export", zap.String("run_id", snap.ID), zap.Error(err))
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown export format")
	}
}

func attachment(snap check.Snapshot, ext string) string {
	return fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-check-%s.%s", snap.Mode, snap.ID, ext))
}
