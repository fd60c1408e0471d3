package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/accountd/apiserver/internal/services"
	"github.com/accountd/apiserver/internal/store"
	"github.com/accountd/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides user management endpoints.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler constructs a UserHandler with the provided service.
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers user routes on the given router. Every route requires
// authentication; management routes additionally require the admin role or
// resource ownership.
func UserRouter(r chi.Router, users *services.UserService, mw *Middleware) {
	handler := NewUserHandler(users)

	r.Use(mw.RequireAuth)

	r.Get("/profile", handler.GetProfile)
	r.Put("/profile", handler.UpdateProfile)

	r.With(Authorize(types.RoleAdmin)).Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.With(ResourceOwnerOrAdmin).Get("/", handler.GetUser)
		r.With(Authorize(types.RoleAdmin)).Put("/", handler.UpdateUser)
		r.With(Authorize(types.RoleAdmin)).Delete("/", handler.DeleteUser)
	})
}

// ListUsers returns a page of active users with a pagination summary.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	users, info, err := h.users.List(r.Context(), page, limit)
	if err != nil {
		writeServerError(w, "Error fetching users", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		Data:       users,
		Pagination: &info,
	})
}

// GetUser returns a single user by id, active or not.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServerError(w, "Error fetching user", err)
		return
	}

	writeData(w, http.StatusOK, user)
}

// UpdateUser applies a partial update to any account.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role != nil && *req.Role != types.RoleUser && *req.Role != types.RoleAdmin {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	user, err := h.users.Update(r.Context(), id, services.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeUpdateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "User updated successfully",
		Data:    user,
	})
}

// DeleteUser deactivates an account. The record is kept.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.users.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServerError(w, "Error deleting user", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "User deactivated successfully"})
}

// GetProfile returns the caller's own record.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied. Not authenticated.")
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServerError(w, "Error fetching profile", err)
		return
	}

	writeData(w, http.StatusOK, user)
}

// UpdateProfile lets the caller change their own name and email.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied. Not authenticated.")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Update(r.Context(), identity.ID, services.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.writeUpdateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Profile updated successfully",
		Data:    user,
	})
}

func (h *UserHandler) writeUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		writeServerError(w, "Error updating user", err)
	}
}

type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}
