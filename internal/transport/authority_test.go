package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"permsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T) *models.PermissionChangeRequest {
	t.Helper()
	req, err := models.NewUserRequest("alice", "/shared/calendar", models.PermissionGrant, models.PermissionUnspecified, models.PermissionRevoke)
	require.NoError(t, err)
	return req
}

func TestAuthorityClient_Submit(t *testing.T) {
	var received submitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/permission-requests", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(submitResponse{Accepted: true})
	}))
	defer srv.Close()

	client := NewAuthorityClient(srv.URL, "secret")
	request := newTestRequest(t)

	require.NoError(t, client.Submit(context.Background(), request))

	assert.Equal(t, request.ID, received.ID)
	assert.Equal(t, "alice", received.UserID)
	assert.Equal(t, "/shared/calendar", received.RealmURL)
	// Grant/revoke travel as explicit booleans, unspecified stays absent.
	require.NotNil(t, received.MayRead)
	assert.True(t, *received.MayRead)
	assert.Nil(t, received.MayWrite)
	require.NotNil(t, received.MayManage)
	assert.False(t, *received.MayManage)
}

func TestAuthorityClient_Submit_DuplicateIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	client := NewAuthorityClient(srv.URL, "")
	assert.NoError(t, client.Submit(context.Background(), newTestRequest(t)))
}

func TestAuthorityClient_Submit_ServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewAuthorityClient(srv.URL, "")
	err := client.Submit(context.Background(), newTestRequest(t))
	require.Error(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}
