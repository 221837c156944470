package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserRequest(t *testing.T) {
	t.Parallel()

	req, err := NewUserRequest("alice", "/shared/calendar", PermissionGrant, PermissionUnspecified, PermissionUnspecified)
	require.NoError(t, err)

	assert.Equal(t, "alice", req.UserID)
	assert.Equal(t, "/shared/calendar", req.RealmURL)
	assert.Equal(t, PermissionGrant, req.MayRead)
	assert.Equal(t, PermissionUnspecified, req.MayWrite)
	assert.Equal(t, PermissionUnspecified, req.MayManage)
	assert.Nil(t, req.MetadataKey)
	assert.Nil(t, req.MetadataValue)
	assert.Nil(t, req.StatusCode)
	assert.Equal(t, StatusNotProcessed, req.Decoded().Status)
	assert.NotEmpty(t, req.ID)
	assert.False(t, req.CreatedAt.IsZero())
	assert.NoError(t, req.Validate())
}

func TestNewUserRequest_DistinctIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		req, err := NewUserRequest("bob", WildcardTarget, PermissionUnspecified, PermissionUnspecified, PermissionUnspecified)
		require.NoError(t, err)
		assert.False(t, seen[req.ID], "duplicate id %s", req.ID)
		seen[req.ID] = true
	}
}

func TestNewUserRequest_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userID   string
		realmURL string
		read     PermissionFlag
	}{
		{"empty user", "", "/realm", PermissionGrant},
		{"empty realm", "alice", "", PermissionGrant},
		{"bogus flag", "alice", "/realm", PermissionFlag("maybe")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUserRequest(tt.userID, tt.realmURL, tt.read, PermissionUnspecified, PermissionUnspecified)
			require.Error(t, err)
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestNewMetadataRequest(t *testing.T) {
	t.Parallel()

	req, err := NewMetadataRequest("department", "engineering", WildcardTarget, PermissionUnspecified, PermissionRevoke, PermissionUnspecified)
	require.NoError(t, err)

	// UserID is explicitly empty, not the all-users wildcard.
	assert.Equal(t, "", req.UserID)
	require.NotNil(t, req.MetadataKey)
	require.NotNil(t, req.MetadataValue)
	assert.Equal(t, "department", *req.MetadataKey)
	assert.Equal(t, "engineering", *req.MetadataValue)
	assert.True(t, req.MetadataTargeted())
	assert.NoError(t, req.Validate())

	// Key and value are populated together; neither may be empty.
	_, err = NewMetadataRequest("", "engineering", WildcardTarget, PermissionUnspecified, PermissionUnspecified, PermissionUnspecified)
	assert.Error(t, err)
	_, err = NewMetadataRequest("department", "", WildcardTarget, PermissionUnspecified, PermissionUnspecified, PermissionUnspecified)
	assert.Error(t, err)
}

func TestValidate_TargetingModeExclusive(t *testing.T) {
	t.Parallel()

	key, value := "team", "ops"

	both := &PermissionChangeRequest{
		UserID:        "alice",
		MetadataKey:   &key,
		MetadataValue: &value,
		RealmURL:      "/realm",
		MayRead:       PermissionUnspecified,
		MayWrite:      PermissionUnspecified,
		MayManage:     PermissionUnspecified,
	}
	assert.Error(t, both.Validate())

	neither := &PermissionChangeRequest{
		RealmURL:  "/realm",
		MayRead:   PermissionUnspecified,
		MayWrite:  PermissionUnspecified,
		MayManage: PermissionUnspecified,
	}
	assert.Error(t, neither.Validate())
}

func TestPermissionFlag_MergeContract(t *testing.T) {
	t.Parallel()

	req, err := NewUserRequest("alice", "/realm", PermissionGrant, PermissionUnspecified, PermissionRevoke)
	require.NoError(t, err)

	// Unspecified must stay distinguishable from an explicit revoke.
	assert.Equal(t, PermissionUnspecified, req.MayWrite)
	assert.Nil(t, req.MayWrite.Bool())
	require.NotNil(t, req.MayRead.Bool())
	assert.True(t, *req.MayRead.Bool())
	require.NotNil(t, req.MayManage.Bool())
	assert.False(t, *req.MayManage.Bool())
}

func TestFlagFromBool(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	assert.Equal(t, PermissionUnspecified, FlagFromBool(nil))
	assert.Equal(t, PermissionGrant, FlagFromBool(&yes))
	assert.Equal(t, PermissionRevoke, FlagFromBool(&no))
}
