package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
	"ticket-marketplace/security"
)

func newEvent(req *http.Request) (*core.RequestEvent, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var res Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestFail_MapsKindsToStatus(t *testing.T) {
	tests := []struct {
		err     error
		code    int
		message string
	}{
		{status.ErrInvalidTicketSelection, http.StatusBadRequest, "invalid ticket selection"},
		{fmt.Errorf("load: %w", status.ErrOrderNotFound), http.StatusNotFound, "order not found"},
		{&status.InsufficientSeatsError{TicketTypeID: "tt-1"}, http.StatusConflict, "insufficient seats for ticket type tt-1"},
		{status.ErrTicketNotEligible, http.StatusConflict, "ticket is not eligible for this trade action"},
		{status.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{status.ErrForbidden, http.StatusForbidden, "access denied"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			e, rec := newEvent(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, fail(e, tc.err))

			assert.Equal(t, tc.code, rec.Code)
			res := decode(t, rec)
			assert.False(t, res.Success)
			assert.Equal(t, tc.message, res.Message)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	tokens := security.NewTokenIssuer("secret", time.Hour)
	auth := NewAuthenticator(tokens)

	e, rec := newEvent(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, auth.RequireAuth(e))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	e, rec = newEvent(req)
	require.NoError(t, auth.RequireAuth(e))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := tokens.Issue("alice", models.RoleUser)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	e, rec = newEvent(req)
	require.NoError(t, auth.RequireAuth(e))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", userID(e))

	// authenticated but not an admin
	require.NoError(t, auth.RequireAdmin(e))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_AllowsAdmins(t *testing.T) {
	tokens := security.NewTokenIssuer("secret", time.Hour)
	auth := NewAuthenticator(tokens)

	token, err := tokens.Issue("root", models.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	e, rec := newEvent(req)

	require.NoError(t, auth.RequireAuth(e))
	require.NoError(t, auth.RequireAdmin(e))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
