// Package handler exposes the team notification feed.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gearcheck/internal/notify"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/httputil"
)

// Handler handles notification endpoints.
type Handler struct {
	store        notify.Store
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(store notify.Store, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		store:        store,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the notification routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(notifyRouter chi.Router) {
		notifyRouter.Use(middleware.Recovery(h.logger))
		notifyRouter.Use(middleware.RequestID)
		notifyRouter.Use(middleware.Logger(h.logger))
		notifyRouter.Use(middleware.Timeout(30 * time.Second))
		notifyRouter.Use(middleware.Latency(h.metrics))
		notifyRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		notifyRouter.Get("/teams/{teamID}/notifications", h.handleTeamNotifications)
	})
}

func (h *Handler) handleTeamNotifications(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ListByTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications"))
		return
	}
	if out == nil {
		out = []notify.Notification{}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
