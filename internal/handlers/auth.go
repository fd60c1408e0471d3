package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/accountd/apiserver/internal/services"
	"github.com/accountd/apiserver/internal/store"
	"github.com/accountd/apiserver/internal/token"
	"github.com/accountd/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides signup, login, and session endpoints.
type AuthHandler struct {
	users  *services.UserService
	tokens *token.Manager
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, tokens *token.Manager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users *services.UserService, tokens *token.Manager, mw *Middleware) {
	handler := NewAuthHandler(users, tokens)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.With(mw.RequireAuth).Get("/me", handler.Me)
	r.Post("/logout", handler.Logout)
	r.With(mw.RequireAuth).Put("/change-password", handler.ChangePassword)
}

// Signup creates a new active account and returns it with a session token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide name, email and password")
		return
	}
	if req.Role != "" && req.Role != types.RoleUser && req.Role != types.RoleAdmin {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "User already exists with this email")
			return
		}
		writeServerError(w, "Error creating user", err)
		return
	}

	tokenString, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeServerError(w, "Error creating token", err)
		return
	}

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "User registered successfully",
		Data:    AuthPayload{User: user, Token: tokenString},
	})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeServerError(w, "Error logging in", err)
		return
	}

	tokenString, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeServerError(w, "Error creating token", err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Login successful",
		Data:    AuthPayload{User: user, Token: tokenString},
	})
}

// Me returns the identity the request was authenticated as.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied. Not authenticated.")
		return
	}
	writeData(w, http.StatusOK, identity)
}

// Logout acknowledges the request. Tokens are stateless, so there is nothing
// to revoke server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out successfully"})
}

// ChangePassword rotates the caller's password after verifying the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied. Not authenticated.")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Please provide current and new password")
		return
	}

	if err := h.users.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeServerError(w, "Error changing password", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Password changed successfully"})
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthPayload is the data field returned by signup and login.
type AuthPayload struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}
