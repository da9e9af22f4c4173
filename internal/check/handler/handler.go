// Package handler exposes the check submission and correction endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gearcheck/internal/check"
	"gearcheck/internal/check/service"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/httputil"
)

// Coordinator defines the submission operations the handler needs.
type Coordinator interface {
	Submit(ctx context.Context, in service.SubmitInput) (*check.WithItems, error)
	Amend(ctx context.Context, in service.AmendInput) (*check.WithItems, error)
	Get(ctx context.Context, checkID string) (*check.WithItems, error)
	ListWorkerChecks(ctx context.Context, workerID, rng string) ([]check.WithItems, error)
}

// Handler handles check endpoints.
type Handler struct {
	coordinator  Coordinator
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(coordinator Coordinator, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		coordinator:  coordinator,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the check routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(checkRouter chi.Router) {
		checkRouter.Use(middleware.Recovery(h.logger))
		checkRouter.Use(middleware.RequestID)
		checkRouter.Use(middleware.Logger(h.logger))
		checkRouter.Use(middleware.Timeout(30 * time.Second))
		checkRouter.Use(middleware.ContentTypeJSON)
		checkRouter.Use(middleware.Latency(h.metrics))
		checkRouter.Use(middleware.Device)
		checkRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		checkRouter.Post("/checks", h.handleSubmit)
		checkRouter.Get("/checks/{checkID}", h.handleGet)
		checkRouter.Put("/checks/{checkID}", h.handleAmend)
		checkRouter.Get("/workers/{workerID}/checks", h.handleWorkerHistory)
	})
}

type submitRequest struct {
	WorkerID string       `json:"workerId"`
	TeamID   string       `json:"teamId"`
	Items    []check.Item `json:"items"`
}

type amendRequest struct {
	Items []check.Item `json:"items"`
}

type checkResponse struct {
	ID        string       `json:"id"`
	WorkerID  string       `json:"workerId"`
	TeamID    string       `json:"teamId"`
	Role      string       `json:"role,omitempty"`
	Result    check.Result `json:"result"`
	Day       string       `json:"day"`
	CreatedAt time.Time    `json:"createdAt"`
	Items     []check.Item `json:"items"`
}

func toResponse(c *check.WithItems) checkResponse {
	return checkResponse{
		ID:        c.Check.ID,
		WorkerID:  c.Check.WorkerID,
		TeamID:    c.Check.TeamID,
		Role:      c.Check.Role,
		Result:    c.Check.Result,
		Day:       c.Check.Day,
		CreatedAt: c.Check.CreatedAt,
		Items:     c.Items,
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	got, err := h.coordinator.Submit(ctx, service.SubmitInput{
		WorkerID: req.WorkerID,
		TeamID:   req.TeamID,
		Items:    req.Items,
		Actor:    middleware.GetActorID(ctx),
		Via:      middleware.GetClient(ctx),
	})
	if err != nil {
		h.logFailure(ctx, "submit check failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(got))
}

func (h *Handler) handleAmend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req amendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	got, err := h.coordinator.Amend(ctx, service.AmendInput{
		CheckID: chi.URLParam(r, "checkID"),
		Items:   req.Items,
		Actor:   middleware.GetActorID(ctx),
		Via:     middleware.GetClient(ctx),
	})
	if err != nil {
		h.logFailure(ctx, "amend check failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(got))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	got, err := h.coordinator.Get(r.Context(), chi.URLParam(r, "checkID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(got))
}

func (h *Handler) handleWorkerHistory(w http.ResponseWriter, r *http.Request) {
	got, err := h.coordinator.ListWorkerChecks(r.Context(),
		chi.URLParam(r, "workerID"), r.URL.Query().Get("range"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]checkResponse, 0, len(got))
	for i := range got {
		out = append(out, toResponse(&got[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"code", de.Code,
			"error", err.Error(),
		)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
