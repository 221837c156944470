package seed

import (
	"testing"

	"permsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PermissionChangeRequest{}))
	return db
}

func TestSeed(t *testing.T) {
	db := setupDB(t)

	err := Seed(db, Options{NumRequests: 40, ProcessedRatio: 0.5})
	require.NoError(t, err)

	var total int64
	require.NoError(t, db.Model(&models.PermissionChangeRequest{}).Count(&total).Error)
	assert.EqualValues(t, 40, total)

	var processed int64
	require.NoError(t, db.Model(&models.PermissionChangeRequest{}).
		Where("status_code IS NOT NULL").Count(&processed).Error)
	assert.EqualValues(t, 20, processed)
}

func TestSeedCleans(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, Seed(db, Options{NumRequests: 10}))
	require.NoError(t, Seed(db, Options{NumRequests: 5, ShouldClean: true}))

	var total int64
	require.NoError(t, db.Model(&models.PermissionChangeRequest{}).Count(&total).Error)
	assert.EqualValues(t, 5, total)
}

func TestFactoryBuildsValidRequests(t *testing.T) {
	f := NewFactory(setupDB(t), Options{})

	for i := 0; i < 50; i++ {
		user, err := f.BuildUserRequest()
		require.NoError(t, err)
		assert.NoError(t, user.Validate())
		assert.False(t, user.Processed())

		meta, err := f.BuildMetadataRequest()
		require.NoError(t, err)
		assert.NoError(t, meta.Validate())
		assert.True(t, meta.MetadataTargeted())
	}
}

func TestWithTerminalStatus(t *testing.T) {
	f := NewFactory(setupDB(t), Options{})

	req, err := f.BuildUserRequest(f.WithTerminalStatus())
	require.NoError(t, err)
	require.True(t, req.Processed())
	assert.NotEqual(t, models.StatusNotProcessed, req.Decoded().Status)
	assert.True(t, req.UpdatedAt.After(req.CreatedAt))
}
