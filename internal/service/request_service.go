// Package service contains business logic for permission change requests.
package service

import (
	"context"
	"log/slog"
	"time"

	"permsync/internal/cache"
	"permsync/internal/featureflags"
	"permsync/internal/middleware"
	"permsync/internal/models"
	"permsync/internal/notifications"
	"permsync/internal/observability"
	"permsync/internal/repository"
	"permsync/internal/transport"
	"permsync/internal/validation"
)

// statusFields are the record fields the authority's terminal write touches.
var statusFields = []string{"statusCode", "statusMessage", "updatedAt"}

// RequestService owns the lifecycle of permission change requests: it
// constructs and persists records, hands them to the authority transport, and
// applies the authority's terminal status exactly once.
type RequestService struct {
	requestRepo repository.RequestRepository
	submitter   transport.AuthoritySubmitter
	notifier    *notifications.Notifier
	flags       *featureflags.Manager
	logger      *slog.Logger
}

// NewRequestService returns a new RequestService. submitter, notifier, and
// flags may be nil in tests; all degrade to no-ops.
func NewRequestService(
	requestRepo repository.RequestRepository,
	submitter transport.AuthoritySubmitter,
	notifier *notifications.Notifier,
	flags *featureflags.Manager,
) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		submitter:   submitter,
		notifier:    notifier,
		flags:       flags,
		logger:      middleware.Logger,
	}
}

// disabledByFlag reports whether a feature is explicitly switched off for the
// principal. Unconfigured flags leave the feature on.
func (s *RequestService) disabledByFlag(name, userID string) bool {
	return s.flags.Configured(name) && !s.flags.Enabled(name, userID)
}

// CreateForUser creates and submits a user-targeted request. Optional flags
// left nil are stored as unspecified, preserving their merge semantics.
func (s *RequestService) CreateForUser(
	ctx context.Context, requestedBy, userID, realmURL string, read, write, manage *bool,
) (*models.PermissionChangeRequest, error) {
	if err := validation.ValidateTargetUserID(userID); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateRealmURL(realmURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	request, err := models.NewUserRequest(
		userID, realmURL,
		models.FlagFromBool(read), models.FlagFromBool(write), models.FlagFromBool(manage),
	)
	if err != nil {
		return nil, err
	}
	return s.persistAndSubmit(ctx, request, requestedBy, "user")
}

// CreateForMetadata creates and submits a metadata-targeted request.
func (s *RequestService) CreateForMetadata(
	ctx context.Context, requestedBy, key, value, realmURL string, read, write, manage *bool,
) (*models.PermissionChangeRequest, error) {
	if s.disabledByFlag("metadata_targeting", requestedBy) {
		return nil, models.NewValidationError("Metadata targeting is currently disabled")
	}
	if err := validation.ValidateMetadataKey(key); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateRealmURL(realmURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	request, err := models.NewMetadataRequest(
		key, value, realmURL,
		models.FlagFromBool(read), models.FlagFromBool(write), models.FlagFromBool(manage),
	)
	if err != nil {
		return nil, err
	}
	return s.persistAndSubmit(ctx, request, requestedBy, "metadata")
}

func (s *RequestService) persistAndSubmit(
	ctx context.Context, request *models.PermissionChangeRequest, requestedBy, mode string,
) (*models.PermissionChangeRequest, error) {
	request.RequestedBy = requestedBy

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}
	observability.RequestsCreated.WithLabelValues(mode).Inc()

	// The record is durable at this point. A failed submission is retried by
	// the redelivery loop, so it does not fail the create.
	if s.submitter != nil {
		if err := s.submitter.Submit(ctx, request); err != nil {
			s.logger.Warn("initial authority delivery failed, leaving to redelivery",
				slog.String("request_id", request.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return request, nil
}

// Get returns the stored record by id.
func (s *RequestService) Get(ctx context.Context, id string) (*models.PermissionChangeRequest, error) {
	var request models.PermissionChangeRequest
	err := cache.RequestAside(ctx, id, &request, func() error {
		stored, err := s.requestRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		request = *stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListMine returns requests created by the given principal.
func (s *RequestService) ListMine(ctx context.Context, requestedBy string, limit, offset int) ([]models.PermissionChangeRequest, error) {
	return s.requestRepo.ListByRequester(ctx, requestedBy, limit, offset)
}

// ApplyAuthorityStatus records the authority's terminal status and publishes
// the field-change event. Replays of the same terminal status are accepted
// silently; a conflicting second status is rejected by the repository.
func (s *RequestService) ApplyAuthorityStatus(
	ctx context.Context, id string, code int, message string,
) (*models.PermissionChangeRequest, error) {
	request, err := s.requestRepo.ApplyStatus(ctx, id, code, message)
	if err != nil {
		return nil, err
	}

	cache.InvalidateRequest(ctx, id)

	decoded := request.Decoded()
	kind := ""
	if decoded.ErrorCode != nil {
		kind = string(decoded.ErrorCode.Kind)
	}
	observability.TerminalOutcomes.WithLabelValues(string(decoded.Status), kind).Inc()

	if s.notifier != nil {
		if err := s.notifier.PublishChange(ctx, notifications.ChangeEvent{
			RequestID:     id,
			ChangedFields: statusFields,
		}); err != nil {
			s.logger.Error("failed to publish status change",
				slog.String("request_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("terminal status applied",
		slog.String("request_id", id),
		slog.Int("status_code", code),
		slog.String("status", string(decoded.Status)),
	)
	return request, nil
}

// StartRedelivery periodically re-submits unprocessed requests so delivery is
// at-least-once even when the initial submission failed. The authority
// deduplicates by record id.
func (s *RequestService) StartRedelivery(ctx context.Context, interval time.Duration, batchSize int) {
	if s.submitter == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.redeliverPending(ctx, batchSize)
			}
		}
	}()
}

func (s *RequestService) redeliverPending(ctx context.Context, batchSize int) {
	pending, err := s.requestRepo.ListPending(ctx, batchSize)
	if err != nil {
		s.logger.Error("redelivery listing failed", slog.String("error", err.Error()))
		return
	}
	if len(pending) == 0 {
		return
	}

	observability.LogAsyncOperationStart(ctx, "redeliver_pending", map[string]interface{}{
		"batch": len(pending),
	})
	for i := range pending {
		request := &pending[i]
		if err := s.submitter.Submit(ctx, request); err != nil {
			observability.SubmissionRetries.WithLabelValues("error").Inc()
			s.logger.Warn("redelivery failed",
				slog.String("request_id", request.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		observability.SubmissionRetries.WithLabelValues("success").Inc()
	}
	observability.LogAsyncOperationEnd(ctx, "redeliver_pending", map[string]interface{}{
		"batch": len(pending),
	})
}
