package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/accountd/apiserver/internal/services"
	"github.com/accountd/apiserver/internal/store"
	"github.com/accountd/apiserver/internal/token"
	"github.com/accountd/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// Middleware authenticates requests and attaches the resolved identity to
// the request context.
type Middleware struct {
	users  *services.UserService
	tokens *token.Manager
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(users *services.UserService, tokens *token.Manager) *Middleware {
	return &Middleware{users: users, tokens: tokens}
}

// RequireAuth extracts the bearer token, verifies it, loads the user it was
// issued for, and stores the identity in the request context. Verification
// failures and unknown users are both 401; a store failure is 500.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		userID, err := m.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is not valid.")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Token is not valid. User not found.")
				return
			}
			writeServerError(w, "Server error in authentication", err)
			return
		}

		ctx := context.WithValue(r.Context(), contextIdentityKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize passes only when the authenticated identity holds one of the
// allowed roles.
func Authorize(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Access denied. Not authenticated.")
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden,
				fmt.Sprintf("User role %s is not authorized to access this route", identity.Role))
		})
	}
}

// ResourceOwnerOrAdmin passes admins, and non-admins whose id matches the
// {userID} path parameter.
func ResourceOwnerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Access denied. Not authenticated.")
			return
		}

		if identity.Role == types.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}
		if chi.URLParam(r, "userID") == identity.ID.String() {
			next.ServeHTTP(w, r)
			return
		}

		writeError(w, http.StatusForbidden, "Access denied. Not authorized to access this resource.")
	})
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}
