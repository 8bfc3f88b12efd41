package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	AccountIDHeader   = "X-Account-ID"
	AccountRoleHeader = "X-Account-Role"

	RoleOperator = "operator"
)

type contextKey string

const (
	accountIDKey   contextKey = "account_id"
	accountRoleKey contextKey = "account_role"
)

// AuthMiddleware reads the identity the authenticating proxy attached to the request.
// Token validation happens upstream; here the account id is opaque.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := strings.TrimSpace(r.Header.Get(AccountIDHeader))
		if accountID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing account authentication")
			return
		}
		role := strings.TrimSpace(r.Header.Get(AccountRoleHeader))
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), accountID, role)))
	})
}

// OperatorOnly must run after AuthMiddleware.
func OperatorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, _ := r.Context().Value(accountRoleKey).(string); role != RoleOperator {
			respondError(w, http.StatusForbidden, "forbidden", "operator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware echoes the chi request id back to the caller.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		next.ServeHTTP(w, r)
	})
}

func WithAccount(ctx context.Context, accountID, role string) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, accountID)
	return context.WithValue(ctx, accountRoleKey, role)
}

func getAccountIDFromContext(ctx context.Context) string {
	if accountID, ok := ctx.Value(accountIDKey).(string); ok {
		return accountID
	}
	return ""
}
