package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDecodeStatus_Pending(t *testing.T) {
	t.Parallel()

	decoded := DecodeStatus(nil)
	assert.Equal(t, StatusNotProcessed, decoded.Status)
	assert.Nil(t, decoded.ErrorCode)
}

func TestDecodeStatus_Success(t *testing.T) {
	t.Parallel()

	decoded := DecodeStatus(intPtr(0))
	assert.Equal(t, StatusSuccess, decoded.Status)
	assert.Nil(t, decoded.ErrorCode)
}

func TestDecodeStatus_KnownCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		kind StatusErrorKind
	}{
		{601, StatusErrorMalformed},
		{603, StatusErrorNotFound},
		{606, StatusErrorAccessDenied},
		{611, StatusErrorExpired},
	}

	for _, tt := range tests {
		decoded := DecodeStatus(intPtr(tt.code))
		assert.Equal(t, StatusError, decoded.Status)
		require.NotNil(t, decoded.ErrorCode)
		assert.Equal(t, tt.kind, decoded.ErrorCode.Kind)
		assert.Equal(t, tt.code, decoded.ErrorCode.RawCode)
	}
}

// Unrecognized codes must decode, never panic, and keep the raw value.
func TestDecodeStatus_UnknownCode(t *testing.T) {
	t.Parallel()

	for _, code := range []int{619, -1, 1, 1 << 30} {
		decoded := DecodeStatus(intPtr(code))
		assert.Equal(t, StatusError, decoded.Status)
		require.NotNil(t, decoded.ErrorCode)
		assert.Equal(t, StatusErrorUnknown, decoded.ErrorCode.Kind)
		assert.Equal(t, code, decoded.ErrorCode.RawCode)
	}
}

func TestDecodeStatus_Deterministic(t *testing.T) {
	t.Parallel()

	first := DecodeStatus(intPtr(606))
	second := DecodeStatus(intPtr(606))
	assert.Equal(t, first, second)
}

func TestDecoded_TracksRecordCode(t *testing.T) {
	t.Parallel()

	req, err := NewUserRequest("alice", "/shared/calendar", PermissionGrant, PermissionUnspecified, PermissionUnspecified)
	require.NoError(t, err)
	assert.Equal(t, StatusNotProcessed, req.Decoded().Status)

	req.StatusCode = intPtr(0)
	assert.Equal(t, StatusSuccess, req.Decoded().Status)
	assert.Nil(t, req.Decoded().ErrorCode)

	req.StatusCode = intPtr(619)
	decoded := req.Decoded()
	assert.Equal(t, StatusError, decoded.Status)
	require.NotNil(t, decoded.ErrorCode)
	assert.Equal(t, StatusErrorUnknown, decoded.ErrorCode.Kind)
	assert.Equal(t, 619, decoded.ErrorCode.RawCode)
}
