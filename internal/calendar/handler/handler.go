// Package handler exposes the calendar read endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gearcheck/internal/calendar"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	"gearcheck/pkg/platform/httputil"
)

// Handler handles calendar endpoints.
type Handler struct {
	calendar     *calendar.Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(cal *calendar.Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		calendar:     cal,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the calendar routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(calRouter chi.Router) {
		calRouter.Use(middleware.Recovery(h.logger))
		calRouter.Use(middleware.RequestID)
		calRouter.Use(middleware.Logger(h.logger))
		calRouter.Use(middleware.Timeout(30 * time.Second))
		calRouter.Use(middleware.Latency(h.metrics))
		calRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		calRouter.Get("/calendar/{date}/teams", h.handleTeams)
		calRouter.Get("/calendar/{date}/teams/{teamID}/workers", h.handleTeamWorkers)
		calRouter.Get("/calendar/{date}/workers/{workerID}", h.handleWorker)
	})
}

func (h *Handler) handleTeams(w http.ResponseWriter, r *http.Request) {
	out, err := h.calendar.TeamsForDay(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleTeamWorkers(w http.ResponseWriter, r *http.Request) {
	out, err := h.calendar.TeamWorkersForDay(r.Context(),
		chi.URLParam(r, "teamID"), chi.URLParam(r, "date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleWorker(w http.ResponseWriter, r *http.Request) {
	out, err := h.calendar.WorkerForDay(r.Context(),
		chi.URLParam(r, "workerID"), chi.URLParam(r, "date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
