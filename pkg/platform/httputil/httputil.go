// Package httputil centralizes JSON response and error envelope writing so
// every handler produces the same shape.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "gearcheck/pkg/domain-errors"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors deliberately omit the description so infrastructure detail never
// reaches clients; every other code includes it, plus any structured meta
// (for example the disallowed equipment list on role_not_allowed).
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)
	body := map[string]any{}

	if de, ok := dErrors.As(err); ok {
		status = dErrors.ToHTTPStatus(de.Code)
		code = string(de.Code)
		if de.Code != dErrors.CodeInternal {
			body["error_description"] = de.Message
		}
		for k, v := range de.Meta {
			body[k] = v
		}
	}
	body["error"] = code

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
