// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"permsync/internal/models"
	"permsync/internal/observability"

	"gorm.io/gorm"
)

// RequestRepository defines the interface for permission change request data
// operations. It is the durable half of the object store collaborator: the id
// primary key supplies the uniqueness constraint and ApplyStatus is the only
// write path open to the authority.
type RequestRepository interface {
	Create(ctx context.Context, request *models.PermissionChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.PermissionChangeRequest, error)
	ListByRequester(ctx context.Context, requestedBy string, limit, offset int) ([]models.PermissionChangeRequest, error)
	ListPending(ctx context.Context, limit int) ([]models.PermissionChangeRequest, error)
	ApplyStatus(ctx context.Context, id string, code int, message string) (*models.PermissionChangeRequest, error)
}

// requestRepository implements RequestRepository
type requestRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	logger  *observability.RepoLogger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics(db),
		logger:  observability.NewRepoLogger(models.PermissionChangeRequest{}.TableName()),
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.PermissionChangeRequest) error {
	defer r.metrics.TrackQuery("create", models.PermissionChangeRequest{}.TableName())()

	if err := request.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("a request with this ID already exists")
		}
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}

	r.logger.LogCreate(ctx, map[string]interface{}{"id": request.ID})
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.PermissionChangeRequest, error) {
	var request models.PermissionChangeRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("PermissionChangeRequest", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, requestedBy string, limit, offset int) ([]models.PermissionChangeRequest, error) {
	var requests []models.PermissionChangeRequest
	if err := r.db.WithContext(ctx).
		Where("requested_by = ?", requestedBy).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) ListPending(ctx context.Context, limit int) ([]models.PermissionChangeRequest, error) {
	var requests []models.PermissionChangeRequest
	if err := r.db.WithContext(ctx).
		Where("status_code IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

// ApplyStatus writes the terminal status exactly once. The guarded UPDATE
// only matches unprocessed rows, so a replayed identical write becomes a
// no-op and a second write with a different code is surfaced as a conflict
// instead of overwriting the first outcome.
func (r *requestRepository) ApplyStatus(ctx context.Context, id string, code int, message string) (*models.PermissionChangeRequest, error) {
	defer r.metrics.TrackQuery("apply_status", models.PermissionChangeRequest{}.TableName())()

	var request *models.PermissionChangeRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PermissionChangeRequest{}).
			Where("id = ? AND status_code IS NULL", id).
			Updates(map[string]interface{}{
				"status_code":    code,
				"status_message": message,
				"updated_at":     time.Now().UTC(),
			})
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}

		var stored models.PermissionChangeRequest
		if err := tx.First(&stored, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("PermissionChangeRequest", id)
			}
			return models.NewInternalError(err)
		}

		if result.RowsAffected == 0 {
			// Already terminal. Identical replay is fine, anything else is
			// a conflicting second write.
			if stored.StatusCode == nil || *stored.StatusCode != code {
				return models.NewConflictError("request already has a different terminal status")
			}
		}

		request = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.LogUpdate(ctx, map[string]interface{}{"id": id, "status_code": code})
	return request, nil
}
