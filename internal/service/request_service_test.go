package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"permsync/internal/featureflags"
	"permsync/internal/models"
	"permsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeSubmitter records submissions and can be told to fail.
type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []string
	fail      bool
}

func (f *fakeSubmitter) Submit(_ context.Context, request *models.PermissionChangeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("authority unreachable")
	}
	f.submitted = append(f.submitted, request.ID)
	return nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func setupService(t *testing.T, submitter *fakeSubmitter, flags *featureflags.Manager) (*RequestService, repository.RequestRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PermissionChangeRequest{}))

	repo := repository.NewRequestRepository(db)
	if submitter == nil {
		// A typed nil would defeat the service's nil submitter check.
		return NewRequestService(repo, nil, nil, flags), repo
	}
	return NewRequestService(repo, submitter, nil, flags), repo
}

func TestCreateForUser(t *testing.T) {
	sub := &fakeSubmitter{}
	svc, repo := setupService(t, sub, nil)
	ctx := context.Background()

	grant := true
	created, err := svc.CreateForUser(ctx, "alice", "bob", "wss://realm.example.com/db", &grant, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.RequestedBy)
	assert.Equal(t, models.PermissionGrant, created.MayRead)
	assert.Equal(t, models.PermissionUnspecified, created.MayWrite)
	assert.False(t, created.Processed())

	// The record was durable before submission and handed to the authority.
	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, 1, sub.count())
}

func TestCreateForUser_InvalidTarget(t *testing.T) {
	svc, _ := setupService(t, nil, nil)

	_, err := svc.CreateForUser(context.Background(), "alice", "bad target!", "wss://realm.example.com", nil, nil, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCreateForUser_SubmitFailureStillCreates(t *testing.T) {
	sub := &fakeSubmitter{fail: true}
	svc, repo := setupService(t, sub, nil)
	ctx := context.Background()

	created, err := svc.CreateForUser(ctx, "alice", "*", "*", nil, nil, nil)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Processed())
}

func TestCreateForMetadata(t *testing.T) {
	sub := &fakeSubmitter{}
	svc, _ := setupService(t, sub, nil)

	revoke := false
	created, err := svc.CreateForMetadata(context.Background(), "alice", "department", "night-shift", "wss://realm.example.com/db", nil, &revoke, nil)
	require.NoError(t, err)
	assert.True(t, created.MetadataTargeted())
	assert.Empty(t, created.UserID)
	assert.Equal(t, models.PermissionRevoke, created.MayWrite)
	assert.Equal(t, 1, sub.count())
}

func TestCreateForMetadata_KillSwitch(t *testing.T) {
	flags := featureflags.NewManager("metadata_targeting=off")
	svc, _ := setupService(t, nil, flags)

	_, err := svc.CreateForMetadata(context.Background(), "alice", "department", "ops", "*", nil, nil, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestApplyAuthorityStatus(t *testing.T) {
	svc, _ := setupService(t, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateForUser(ctx, "alice", "bob", "*", nil, nil, nil)
	require.NoError(t, err)

	updated, err := svc.ApplyAuthorityStatus(ctx, created.ID, models.StatusCodeAccessDenied, "requester lacks manage right")
	require.NoError(t, err)
	require.NotNil(t, updated.StatusCode)
	assert.Equal(t, models.StatusCodeAccessDenied, *updated.StatusCode)

	decoded := updated.Decoded()
	assert.Equal(t, models.StatusError, decoded.Status)
	require.NotNil(t, decoded.ErrorCode)
	assert.Equal(t, models.StatusErrorAccessDenied, decoded.ErrorCode.Kind)

	// Identical replay is a no-op, a different code is a conflict.
	_, err = svc.ApplyAuthorityStatus(ctx, created.ID, models.StatusCodeAccessDenied, "replayed")
	assert.NoError(t, err)

	_, err = svc.ApplyAuthorityStatus(ctx, created.ID, models.StatusCodeSuccess, "changed my mind")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestRedeliverPending(t *testing.T) {
	sub := &fakeSubmitter{fail: true}
	svc, _ := setupService(t, sub, nil)
	ctx := context.Background()

	created, err := svc.CreateForUser(ctx, "alice", "bob", "*", nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, sub.count())

	// Authority comes back; the redelivery pass picks the pending record up.
	sub.fail = false
	svc.redeliverPending(ctx, 10)
	require.Equal(t, 1, sub.count())
	assert.Equal(t, created.ID, sub.submitted[0])

	// Processed records are not redelivered.
	_, err = svc.ApplyAuthorityStatus(ctx, created.ID, models.StatusCodeSuccess, "applied")
	require.NoError(t, err)
	svc.redeliverPending(ctx, 10)
	assert.Equal(t, 1, sub.count())
}

func TestGetAndListMine(t *testing.T) {
	svc, _ := setupService(t, nil, nil)
	ctx := context.Background()

	first, err := svc.CreateForUser(ctx, "alice", "bob", "*", nil, nil, nil)
	require.NoError(t, err)
	_, err = svc.CreateForUser(ctx, "carol", "dave", "*", nil, nil, nil)
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = svc.Get(ctx, "missing-id")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	mine, err := svc.ListMine(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
}
