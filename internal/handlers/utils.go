package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/accountd/apiserver/internal/services"
	"github.com/accountd/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// includeErrorDetail controls whether internal error text is echoed in 500
// responses. Set once at startup, before serving.
var includeErrorDetail bool

// IncludeErrorDetail enables internal error detail in responses. Only meant
// for non-production environments.
func IncludeErrorDetail(enabled bool) {
	includeErrorDetail = enabled
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Data       any                `json:"data,omitempty"`
	Pagination *services.PageInfo `json:"pagination,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func identityFromContext(ctx context.Context) (types.User, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(types.User)
	return identity, ok
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeServerError(w http.ResponseWriter, message string, err error) {
	resp := Response{Success: false, Message: message}
	if includeErrorDetail && err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, errors.New("invalid user ID")
	}
	return id, nil
}

func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 10
	if value := r.URL.Query().Get("page"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return page, limit
}

// Health reports server liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Server is running"})
}

// NotFound answers unmatched routes with the standard envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}
