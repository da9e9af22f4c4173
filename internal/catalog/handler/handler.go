// Package handler exposes catalog administration: equipment, roles, and the
// per-role equipment allowlists.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gearcheck/internal/catalog"
	"gearcheck/internal/directory"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/httputil"
	"gearcheck/pkg/platform/sentinel"
)

// Handler handles catalog endpoints.
type Handler struct {
	catalog      catalog.Store
	directory    directory.Store
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(cat catalog.Store, dir directory.Store, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		catalog:      cat,
		directory:    dir,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the catalog routes. Reads are open to any authenticated
// actor; mutations are manager-only.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(catalogRouter chi.Router) {
		catalogRouter.Use(middleware.Recovery(h.logger))
		catalogRouter.Use(middleware.RequestID)
		catalogRouter.Use(middleware.Logger(h.logger))
		catalogRouter.Use(middleware.Timeout(30 * time.Second))
		catalogRouter.Use(middleware.ContentTypeJSON)
		catalogRouter.Use(middleware.Latency(h.metrics))
		catalogRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		catalogRouter.Get("/equipment", h.handleListEquipment)
		catalogRouter.Get("/roles", h.handleListRoles)
		catalogRouter.Get("/roles/{roleID}/equipment", h.handleRoleEquipment)
		catalogRouter.Get("/workers/{workerID}/required-equipment", h.handleRequiredEquipment)

		catalogRouter.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireManagerRole)
			admin.Post("/equipment", h.handleCreateEquipment)
			admin.Put("/equipment/{equipmentID}", h.handleRenameEquipment)
			admin.Delete("/equipment/{equipmentID}", h.handleDeleteEquipment)
			admin.Post("/roles", h.handleCreateRole)
			admin.Put("/roles/{roleID}", h.handleRenameRole)
			admin.Delete("/roles/{roleID}", h.handleDeleteRole)
			admin.Post("/roles/{roleID}/equipment/{equipmentID}", h.handleAssignEquipment)
			admin.Delete("/roles/{roleID}/equipment/{equipmentID}", h.handleUnassignEquipment)
		})
	})
}

type equipmentRequest struct {
	Name                 string `json:"name"`
	MaxMissesBeforeNotif int    `json:"maxMissesBeforeNotif"`
}

type roleRequest struct {
	Label string `json:"label"`
}

func (h *Handler) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListEquipment(r.Context())
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "equipment"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}
	if req.MaxMissesBeforeNotif < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "maxMissesBeforeNotif must not be negative"))
		return
	}

	eq := catalog.Equipment{
		ID:                   "eq_" + uuid.NewString(),
		Name:                 req.Name,
		MaxMissesBeforeNotif: req.MaxMissesBeforeNotif,
	}
	if err := h.catalog.CreateEquipment(r.Context(), eq); err != nil {
		httputil.WriteError(w, mapStoreErr(err, "equipment"))
		return
	}
	h.logger.InfoContext(r.Context(), "equipment created",
		"equipment_id", eq.ID, "actor_id", middleware.GetActorID(r.Context()))
	httputil.WriteJSON(w, http.StatusCreated, eq)
}

func (h *Handler) handleRenameEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}
	if err := h.catalog.RenameEquipment(r.Context(), chi.URLParam(r, "equipmentID"), req.Name); err != nil {
		httputil.WriteError(w, mapStoreErr(err, "equipment"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.DeleteEquipment(r.Context(), chi.URLParam(r, "equipmentID"))
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict,
				"equipment is referenced by existing checks"))
			return
		}
		httputil.WriteError(w, mapStoreErr(err, "equipment"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListRoles(r.Context())
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "label is required"))
		return
	}

	role := catalog.Role{ID: "role_" + uuid.NewString(), Label: req.Label}
	if err := h.catalog.CreateRole(r.Context(), role); err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) handleRenameRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "label is required"))
		return
	}
	if err := h.catalog.RenameRole(r.Context(), chi.URLParam(r, "roleID"), req.Label); err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteRole(r.Context(), chi.URLParam(r, "roleID")); err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRoleEquipment(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.RoleEquipment(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAssignEquipment(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.AssignEquipment(r.Context(),
		chi.URLParam(r, "roleID"), chi.URLParam(r, "equipmentID"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role or equipment"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassignEquipment(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.UnassignEquipment(r.Context(),
		chi.URLParam(r, "roleID"), chi.URLParam(r, "equipmentID"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "assignment"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRequiredEquipment resolves the worker's role and returns its
// allowlist, the set a submission for this worker must cover.
func (h *Handler) handleRequiredEquipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	worker, err := h.directory.FindWorker(ctx, chi.URLParam(r, "workerID"))
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "worker"))
		return
	}
	out, err := h.catalog.RoleEquipment(ctx, worker.Role)
	if err != nil {
		httputil.WriteError(w, mapStoreErr(err, "role"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func mapStoreErr(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, what+" already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, what)
	}
}
