package database

import (
	"testing"

	modelspkg "permsync/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesPermissionChangeRequest(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*modelspkg.PermissionChangeRequest); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include PermissionChangeRequest")
}
