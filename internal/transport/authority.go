// Package transport delivers newly created permission change requests to the
// server-side authority. Delivery is at-least-once: the authority applies
// submissions idempotently by record id, so retries are safe.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"permsync/internal/middleware"
	"permsync/internal/models"
	"permsync/internal/observability"

	"github.com/go-resty/resty/v2"
)

// AuthoritySubmitter hands a request record to the authority for evaluation.
type AuthoritySubmitter interface {
	Submit(ctx context.Context, request *models.PermissionChangeRequest) error
}

// submitPayload is the wire form of a submission. Flags travel as optional
// booleans so an unspecified flag stays absent instead of defaulting to
// false.
type submitPayload struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        string    `json:"user_id"`
	MetadataKey   *string   `json:"metadata_key,omitempty"`
	MetadataValue *string   `json:"metadata_value,omitempty"`
	RealmURL      string    `json:"realm_url"`
	MayRead       *bool     `json:"may_read,omitempty"`
	MayWrite      *bool     `json:"may_write,omitempty"`
	MayManage     *bool     `json:"may_manage,omitempty"`
	RequestedBy   string    `json:"requested_by,omitempty"`
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// AuthorityClient submits request records to the authority over HTTP.
type AuthorityClient struct {
	httpClient *resty.Client
	logger     *slog.Logger
}

// NewAuthorityClient creates a client for the authority endpoint. The token
// authenticates this service as the requester-side peer.
func NewAuthorityClient(baseURL, token string) *AuthorityClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &AuthorityClient{
		httpClient: client,
		logger:     middleware.Logger,
	}
}

// Submit delivers one request record. The authority answers asynchronously by
// writing the terminal status back through the status callback, not in this
// response.
func (c *AuthorityClient) Submit(ctx context.Context, request *models.PermissionChangeRequest) error {
	ctx, span := observability.GetTraceLayer().TraceAuthorityCall(ctx, "submit")
	defer span.End()

	payload := submitPayload{
		ID:            request.ID,
		CreatedAt:     request.CreatedAt,
		UserID:        request.UserID,
		MetadataKey:   request.MetadataKey,
		MetadataValue: request.MetadataValue,
		RealmURL:      request.RealmURL,
		MayRead:       request.MayRead.Bool(),
		MayWrite:      request.MayWrite.Bool(),
		MayManage:     request.MayManage.Bool(),
		RequestedBy:   request.RequestedBy,
	}

	var response submitResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&response).
		Post("/v1/permission-requests")
	if err != nil {
		span.RecordError(err)
		c.logger.Error("authority submission failed",
			slog.String("request_id", request.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("submit request %s: %w", request.ID, err)
	}

	// 409 means the authority already holds this record (retried delivery);
	// that is success for an at-least-once transport.
	if resp.IsError() && resp.StatusCode() != 409 {
		c.logger.Error("authority rejected submission",
			slog.String("request_id", request.ID),
			slog.Int("http_status", resp.StatusCode()),
			slog.String("message", response.Message),
		)
		return fmt.Errorf("submit request %s: authority returned HTTP %d", request.ID, resp.StatusCode())
	}

	c.logger.Info("request submitted to authority",
		slog.String("request_id", request.ID),
		slog.Int("http_status", resp.StatusCode()),
	)
	return nil
}
