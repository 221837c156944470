package repository

import (
	"context"
	"regexp"
	"testing"

	"permsync/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

// The terminal write must be guarded on status_code IS NULL at the SQL level,
// not just checked in Go, so concurrent authority callbacks cannot both win.
func TestApplyStatusIssuesGuardedUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewRequestRepository(gormDB)

	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	code := models.StatusCodeAccessDenied

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "permission_change_requests" SET "status_code"=$1,"status_message"=$2,"updated_at"=$3 WHERE id = $4 AND status_code IS NULL`)).
		WithArgs(code, "denied", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "permission_change_requests" WHERE id = $1 ORDER BY "permission_change_requests"."id" LIMIT $2`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status_code", "user_id", "realm_url", "requested_by"}).
			AddRow(id, code, "bob", "*", "alice"))
	mock.ExpectCommit()

	updated, err := repo.ApplyStatus(context.Background(), id, code, "denied")
	require.NoError(t, err)
	require.NotNil(t, updated.StatusCode)
	assert.Equal(t, code, *updated.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
