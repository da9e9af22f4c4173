// Package httpserver builds the server the gearcheck API runs on.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server sized for the check API: submissions are small
// JSON bodies, so slow readers are cut off early, while writes get the same
// budget as the per-request middleware timeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
