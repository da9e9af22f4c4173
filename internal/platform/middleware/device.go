package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyClient struct{}

// ContextKeyClient holds the coarse client descriptor ("mobile", "web",
// "api"), recorded into audit revisions for attribution.
var ContextKeyClient = contextKeyClient{}

// GetClient retrieves the client descriptor from the context.
func GetClient(ctx context.Context) string {
	client, ok := ctx.Value(ContextKeyClient).(string)
	if !ok {
		return ""
	}
	return client
}

// Device classifies the caller from its User-Agent. Supervisors submit checks
// from the mobile app in the field; audit views mostly come from browsers.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())

		client := "api"
		switch {
		case ua.Mobile():
			client = "mobile"
		case func() bool { name, _ := ua.Browser(); return name != "" }():
			client = "web"
		}

		ctx := context.WithValue(r.Context(), ContextKeyClient, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
