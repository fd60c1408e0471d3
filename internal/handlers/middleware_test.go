package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/accountd/apiserver/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuthNoToken(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	requireStatus(t, rec, http.StatusUnauthorized)
	assert.Equal(t, "Access denied. No token provided.", decodeEnvelope(t, rec).Message)
}

func TestRequireAuthBadToken(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/auth/me", "not-a-real-token", nil)
	requireStatus(t, rec, http.StatusUnauthorized)
	assert.Equal(t, "Token is not valid.", decodeEnvelope(t, rec).Message)
}

func TestRequireAuthUnknownUser(t *testing.T) {
	env := newTestEnv()

	// Valid signature, but no matching account.
	orphan, err := env.tokens.Issue(uuid.New())
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/auth/me", orphan, nil)
	requireStatus(t, rec, http.StatusUnauthorized)
	assert.Equal(t, "Token is not valid. User not found.", decodeEnvelope(t, rec).Message)
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	env := newTestEnv()
	alice, tokenString := env.seedUser(t, "Alice", "a@x.com", "secret1", "")

	rec := env.do(t, http.MethodGet, "/api/auth/me", tokenString, nil)
	requireStatus(t, rec, http.StatusOK)

	var got types.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "a@x.com", got.Email)

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthorizeRejectsWrongRole(t *testing.T) {
	env := newTestEnv()
	_, tokenString := env.seedUser(t, "Alice", "a@x.com", "secret1", "")

	rec := env.do(t, http.MethodGet, "/api/users", tokenString, nil)
	requireStatus(t, rec, http.StatusForbidden)
	assert.Equal(t,
		fmt.Sprintf("User role %s is not authorized to access this route", types.RoleUser),
		decodeEnvelope(t, rec).Message)
}

func TestAuthorizeAllowsAdmin(t *testing.T) {
	env := newTestEnv()
	_, tokenString := env.seedUser(t, "Root", "root@x.com", "secret1", types.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/users", tokenString, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestResourceOwnerOrAdmin(t *testing.T) {
	env := newTestEnv()
	alice, aliceToken := env.seedUser(t, "Alice", "a@x.com", "secret1", "")
	bob, _ := env.seedUser(t, "Bob", "b@x.com", "secret2", "")
	_, adminToken := env.seedUser(t, "Root", "root@x.com", "secret3", types.RoleAdmin)

	// Owner may read their own record even without the admin role.
	rec := env.do(t, http.MethodGet, "/api/users/"+alice.ID.String(), aliceToken, nil)
	requireStatus(t, rec, http.StatusOK)

	// A non-owner without the admin role is rejected.
	rec = env.do(t, http.MethodGet, "/api/users/"+bob.ID.String(), aliceToken, nil)
	requireStatus(t, rec, http.StatusForbidden)
	assert.Equal(t, "Access denied. Not authorized to access this resource.", decodeEnvelope(t, rec).Message)

	// Admin may read anyone.
	rec = env.do(t, http.MethodGet, "/api/users/"+bob.ID.String(), adminToken, nil)
	requireStatus(t, rec, http.StatusOK)
}
