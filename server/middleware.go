package server

import (
	"context"
	"net/http"
	"strings"

	"melodex/apperr"
	"melodex/core/auth"
	"melodex/model"
)

type contextKey string

const principalKey contextKey = "principal"

// principalFrom returns the authenticated principal attached to the
// request context, or nil for anonymous requests.
func principalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

// tokenFromRequest extracts the session token from the Authorization
// header or the session cookie.
func (h *APIHandler) tokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	cookie, err := r.Cookie(h.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AuthMiddleware requires a valid session token and attaches the
// principal to the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := h.tokenFromRequest(r)
		if tokenString == "" {
			h.respondError(w, apperr.New(apperr.KindAuth, "authentication required"))
			return
		}

		claims, err := h.tokens.Parse(tokenString)
		if err != nil {
			h.respondError(w, apperr.Wrap(apperr.KindAuth, "invalid or expired token", err))
			return
		}

		principal := &auth.Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuthMiddleware attaches a principal when a valid token is
// present but lets anonymous requests through.
func (h *APIHandler) OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := h.tokenFromRequest(r)
		if tokenString != "" {
			if claims, err := h.tokens.Parse(tokenString); err == nil {
				principal := &auth.Principal{
					UserID: claims.UserID,
					Email:  claims.Email,
					Role:   claims.Role,
				}
				r = r.WithContext(context.WithValue(r.Context(), principalKey, principal))
			}
		}
		next.ServeHTTP(w, r)
	}
}

// AdminMiddleware requires an authenticated admin principal.
func (h *APIHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if err := h.authorizer.RequireRole(principalFrom(r.Context()), model.RoleAdmin); err != nil {
			h.respondError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware sets the cross-origin headers and answers preflight
// requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
