package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesafe/safemap/middleware"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

func (s *testServer) setAdminPassword(password string) {
	s.t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(s.t, err)
	require.NoError(s.t, repository.NewSystemConfigRepository(s.db).Set(context.Background(), repository.KeyAdminPassword, hash))
}

func login(t *testing.T, s *testServer, password string) (string, *http.Cookie, int) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"password": password})
	if w.Code != http.StatusOK {
		return "", nil, w.Code
	}
	var res struct {
		Token string `json:"token"`
	}
	decode(t, w, &res)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.AdminCookieName {
			return res.Token, ck, w.Code
		}
	}
	return res.Token, nil, w.Code
}

func TestLoginWithoutStoredPasswordFails(t *testing.T) {
	s := newTestServer(t)
	_, _, status := login(t, s, "anything-long")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	s.setAdminPassword("correct horse")

	_, _, status := login(t, s, "wrong horse")
	assert.Equal(t, http.StatusUnauthorized, status)

	token, cookie, status := login(t, s, "correct horse")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 2*60*60, cookie.MaxAge)

	// the cookie alone authenticates
	w := s.do(http.MethodGet, "/api/v1/admin/stats", nil, withCookie(cookie.Name, cookie.Value))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/session", nil, asAdmin(token))
	var session struct {
		Role string `json:"role"`
	}
	decode(t, w, &session)
	assert.Equal(t, utils.RoleAdmin, session.Role)

	w = s.do(http.MethodPost, "/api/v1/admin/logout", nil, asAdmin(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/stats", nil, asAdmin(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, decode(t, w, nil).Code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	s.setAdminPassword("old-password")
	admin := asAdmin(s.admin)

	w := s.do(http.MethodPost, "/api/v1/admin/change-password", map[string]string{
		"currentPassword": "not-it-at-all", "newPassword": "new-password",
	}, admin)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/change-password", map[string]string{
		"currentPassword": "old-password", "newPassword": "short",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/change-password", map[string]string{
		"currentPassword": "old-password", "newPassword": "new-password",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	_, _, status := login(t, s, "old-password")
	assert.Equal(t, http.StatusUnauthorized, status)
	_, _, status = login(t, s, "new-password")
	assert.Equal(t, http.StatusOK, status)

	w = s.do(http.MethodPost, "/api/v1/admin/change-password", map[string]string{
		"currentPassword": "new-password", "newPassword": "another-one",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAnonymous(t *testing.T) {
	s := newTestServer(t)
	var session struct {
		Role string `json:"role"`
	}
	decode(t, s.do(http.MethodGet, "/api/v1/session", nil), &session)
	assert.Equal(t, "none", session.Role)

	w := s.do(http.MethodGet, "/api/v1/admin/stats", nil, asAdmin("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40105, decode(t, w, nil).Code)
}

func TestRepeatedFailedLoginsBanTheClient(t *testing.T) {
	s := newTestServer(t)
	s.setAdminPassword("correct horse")
	fromIP := func(r *http.Request) { r.RemoteAddr = "198.51.100.20:5555" }

	for i := 0; i < 5; i++ {
		w := s.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"password": "nope-nope"}, fromIP)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := s.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"password": "correct horse"}, fromIP)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 42902, decode(t, w, nil).Code)
}
