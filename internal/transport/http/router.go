// Package httptransport assembles the HTTP surface: every area handler plus
// the unauthenticated health and metrics endpoints.
package httptransport

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gearcheck/pkg/platform/httputil"
)

// Registrar is implemented by every area handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter mounts all handlers. db may be nil in memory mode.
func NewRouter(db *sql.DB, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok"}
		if db != nil {
			if err := db.PingContext(req.Context()); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				httputil.WriteJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
