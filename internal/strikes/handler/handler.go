// Package handler exposes the strike ledger endpoints: reading a worker's
// counters and the redressement reset.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	"gearcheck/internal/strikes"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/httputil"
	"gearcheck/pkg/secrets"
)

// Handler handles strike ledger endpoints.
type Handler struct {
	service      *strikes.Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	adminKeyHash string
}

// New builds the handler. adminKeyHash, when non-empty, lets operational
// tooling reset counters with the X-Admin-Key header instead of a manager
// token.
func New(service *strikes.Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, adminKeyHash string) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
		adminKeyHash: adminKeyHash,
	}
}

// Register mounts the strike routes. Resets are manager-only: they are the
// outcome of a redressement meeting, not something a worker self-serves.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(strikeRouter chi.Router) {
		strikeRouter.Use(middleware.Recovery(h.logger))
		strikeRouter.Use(middleware.RequestID)
		strikeRouter.Use(middleware.Logger(h.logger))
		strikeRouter.Use(middleware.Timeout(30 * time.Second))
		strikeRouter.Use(middleware.ContentTypeJSON)
		strikeRouter.Use(middleware.Latency(h.metrics))
		strikeRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		strikeRouter.Get("/workers/{workerID}/misses", h.handleWorkerCounters)
		strikeRouter.With(h.requireManagerOrAdminKey).
			Post("/misses/reset", h.handleReset)
	})
}

// requireManagerOrAdminKey admits manager-class actors, or any authenticated
// actor presenting the operator admin key.
func (h *Handler) requireManagerOrAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch middleware.GetActorRole(r.Context()) {
		case middleware.RoleChef, middleware.RoleDirection, middleware.RoleAdmin:
			next.ServeHTTP(w, r)
			return
		}
		if key := r.Header.Get("X-Admin-Key"); key != "" && h.adminKeyHash != "" {
			if err := secrets.Verify(key, h.adminKeyHash); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "manager role required"))
	})
}

type counterResponse struct {
	EquipmentID string     `json:"equipmentId"`
	Count       int        `json:"count"`
	LastMissAt  time.Time  `json:"lastMissAt"`
	NotifiedAt  *time.Time `json:"notifiedAt,omitempty"`
}

type resetRequest struct {
	WorkerID    string `json:"workerId"`
	EquipmentID string `json:"equipmentId,omitempty"`
}

type resetResponse struct {
	Reset int `json:"reset"`
}

func (h *Handler) handleWorkerCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.service.WorkerCounters(r.Context(), chi.URLParam(r, "workerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]counterResponse, 0, len(counters))
	for _, c := range counters {
		out = append(out, counterResponse{
			EquipmentID: c.EquipmentID,
			Count:       c.Count,
			LastMissAt:  c.LastMissAt,
			NotifiedAt:  c.NotifiedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.WorkerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "workerId is required"))
		return
	}

	actorID := middleware.GetActorID(ctx)
	if req.EquipmentID != "" {
		if err := h.service.ResetCounter(ctx, req.WorkerID, req.EquipmentID, actorID); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resetResponse{Reset: 1})
		return
	}

	n, err := h.service.ResetWorker(ctx, req.WorkerID, actorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resetResponse{Reset: n})
}
