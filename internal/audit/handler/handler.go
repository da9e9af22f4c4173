// Package handler exposes the audit trail read endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gearcheck/internal/audit"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/httputil"
)

// Handler handles audit endpoints.
type Handler struct {
	audits       *audit.Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(audits *audit.Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		audits:       audits,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the audit routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(auditRouter chi.Router) {
		auditRouter.Use(middleware.Recovery(h.logger))
		auditRouter.Use(middleware.RequestID)
		auditRouter.Use(middleware.Logger(h.logger))
		auditRouter.Use(middleware.Timeout(30 * time.Second))
		auditRouter.Use(middleware.Latency(h.metrics))
		auditRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		auditRouter.Get("/check-audits/{checkID}", h.handleHistory)
		auditRouter.Get("/check-audits/{checkID}/baseline", h.handleBaseline)
		auditRouter.Get("/check-audits/{checkID}/diff", h.handleDiff)
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	revs, err := h.audits.History(r.Context(), chi.URLParam(r, "checkID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, revs)
}

func (h *Handler) handleBaseline(w http.ResponseWriter, r *http.Request) {
	b, err := h.audits.BaselineOf(r.Context(), chi.URLParam(r, "checkID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) handleDiff(w http.ResponseWriter, r *http.Request) {
	from, err := revisionParam(r, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := revisionParam(r, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.audits.DiffRevisions(r.Context(), chi.URLParam(r, "checkID"), from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func revisionParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "missing query parameter "+name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a positive revision number")
	}
	return n, nil
}
