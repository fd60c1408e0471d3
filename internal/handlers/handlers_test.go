package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/accountd/apiserver/internal/services"
	"github.com/accountd/apiserver/internal/store"
	"github.com/accountd/apiserver/internal/token"
	"github.com/accountd/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory UserRepository backing handler tests.
type memRepo struct {
	users []types.User
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memRepo) EmailTaken(_ context.Context, email string, excludeID uuid.UUID) (bool, error) {
	for _, user := range m.users {
		if user.Email == email && user.IsActive && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Create(_ context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users = append(m.users, user)
	return user, nil
}

func (m *memRepo) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	active := make([]types.User, 0, len(m.users))
	for i := len(m.users) - 1; i >= 0; i-- {
		if m.users[i].IsActive {
			active = append(active, m.users[i])
		}
	}
	total := len(active)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return active[offset:end], total, nil
}

func (m *memRepo) Update(_ context.Context, user types.User) (types.User, error) {
	for i := range m.users {
		if m.users[i].ID == user.ID {
			user.UpdatedAt = time.Now()
			m.users[i] = user
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].IsActive = false
			m.users[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return store.ErrNotFound
}

// testEnv wires the full router against an in-memory repository.
type testEnv struct {
	router *chi.Mux
	repo   *memRepo
	users  *services.UserService
	tokens *token.Manager
}

func newTestEnv() *testEnv {
	repo := &memRepo{}
	users := services.NewUserService(repo, nil)
	tokens := token.NewManager("test-secret", time.Hour)
	mw := NewMiddleware(users, tokens)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, users, tokens, mw)
	})
	router.Route("/api/users", func(r chi.Router) {
		UserRouter(r, users, mw)
	})
	router.NotFound(NotFound)

	return &testEnv{router: router, repo: repo, users: users, tokens: tokens}
}

// seedUser registers an account and returns it together with a valid token.
func (e *testEnv) seedUser(t *testing.T, name, email, password, role string) (types.User, string) {
	t.Helper()

	user, err := e.users.Register(context.Background(), name, email, password, role)
	require.NoError(t, err)

	tokenString, err := e.tokens.Issue(user.ID)
	require.NoError(t, err)
	return user, tokenString
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors Response with raw payloads for test-side decoding.
type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Pagination *services.PageInfo `json:"pagination"`
	Error      string             `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
