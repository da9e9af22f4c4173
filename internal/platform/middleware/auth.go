package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Actor roles recognized by the API. Ledger resets and catalog administration
// require a manager-class role.
const (
	RoleChef      = "chef"
	RoleDirection = "direction"
	RoleAdmin     = "admin"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	ActorID string
	Name    string
	Role    string
}

// Context keys for storing authenticated actor information.
type contextKeyActorID struct{}
type contextKeyActorName struct{}
type contextKeyActorRole struct{}

var (
	ContextKeyActorID   = contextKeyActorID{}
	ContextKeyActorName = contextKeyActorName{}
	ContextKeyActorRole = contextKeyActorRole{}
)

// GetActorID retrieves the authenticated actor ID from the context.
func GetActorID(ctx context.Context) string {
	actorID, ok := ctx.Value(ContextKeyActorID).(string)
	if !ok {
		return ""
	}
	return actorID
}

// GetActorName retrieves the authenticated actor display name from the context.
func GetActorName(ctx context.Context) string {
	name, ok := ctx.Value(ContextKeyActorName).(string)
	if !ok {
		return ""
	}
	return name
}

// GetActorRole retrieves the authenticated actor role from the context.
func GetActorRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyActorRole).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth validates the bearer token and stores the actor in context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyActorID, claims.ActorID)
			ctx = context.WithValue(ctx, ContextKeyActorName, claims.Name)
			ctx = context.WithValue(ctx, ContextKeyActorRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManagerRole gates an endpoint to chef, direction, and admin actors.
// Must run after RequireAuth.
func RequireManagerRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch GetActorRole(r.Context()) {
		case RoleChef, RoleDirection, RoleAdmin:
			next.ServeHTTP(w, r)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden"}`))
		}
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
