package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

func TestListUsers_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "ana@example.com", "ana", domain.RoleUser)
	_, adminToken := ts.addUser(t, "admin@example.com", "admin", domain.RoleAdmin)
	_, userToken := ts.addUser(t, "bob@example.com", "bob", domain.RoleUser)

	rec := ts.request(t, http.MethodGet, "/api/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeJSON[[]domain.User](t, rec)
	assert.Len(t, users, 3)
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	ts := newTestServer(t)
	ana, anaToken := ts.addUser(t, "ana@example.com", "ana", domain.RoleUser)
	bob, _ := ts.addUser(t, "bob@example.com", "bob", domain.RoleUser)
	_, adminToken := ts.addUser(t, "admin@example.com", "admin", domain.RoleAdmin)

	// Own record
	rec := ts.request(t, http.MethodGet, "/api/users/1", anaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[domain.User](t, rec)
	assert.Equal(t, ana.Email, got.Email)

	// Someone else's record
	rec = ts.request(t, http.MethodGet, "/api/users/2", anaToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin reads anyone
	rec = ts.request(t, http.MethodGet, "/api/users/2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeJSON[domain.User](t, rec)
	assert.Equal(t, bob.Email, got.Email)
}

func TestGetUser_InvalidID(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.addUser(t, "ana@example.com", "ana", domain.RoleUser)

	rec := ts.request(t, http.MethodGet, "/api/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.addUser(t, "ana@example.com", "ana", domain.RoleUser)

	rec := ts.request(t, http.MethodPut, "/api/users/me", token, map[string]string{
		"full_name": "Ana Silva",
		"company":   "Acme",
		"position":  "Marketing Lead",
		"timezone":  "Asia/Kuala_Lumpur",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeJSON[domain.User](t, rec)
	assert.Equal(t, "Ana Silva", got.FullName)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Asia/Kuala_Lumpur", got.Timezone)
}

func TestDeleteUser_Admin(t *testing.T) {
	ts := newTestServer(t)
	user, userToken := ts.addUser(t, "ana@example.com", "ana", domain.RoleUser)
	_, adminToken := ts.addUser(t, "admin@example.com", "admin", domain.RoleAdmin)

	rec := ts.request(t, http.MethodDelete, "/api/users/1", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.request(t, http.MethodDelete, "/api/users/1", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := ts.users.GetByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// Second delete is a 404
	rec = ts.request(t, http.MethodDelete, "/api/users/1", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
