package server

import (
	"permsync/internal/models"

	"github.com/gofiber/fiber/v2"
)

// flagFields carries the optional tri-state permission flags as they appear
// on the wire. A flag left out of the JSON body stays nil and keeps its
// merge-with-existing semantics; explicit true/false override.
type flagFields struct {
	MayRead   *bool `json:"may_read"`
	MayWrite  *bool `json:"may_write"`
	MayManage *bool `json:"may_manage"`
}

// requestView is the API shape of a stored record: the raw fields plus the
// decoded status, computed from the same snapshot so they never disagree.
type requestView struct {
	*models.PermissionChangeRequest
	Decoded models.DecodedStatus `json:"decoded"`
}

func viewOf(r *models.PermissionChangeRequest) requestView {
	return requestView{PermissionChangeRequest: r, Decoded: r.Decoded()}
}

// CreateUserRequest handles POST /api/requests/user
func (s *Server) CreateUserRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	userID, err := s.requireUserID(c)
	if err != nil {
		return nil
	}

	var req struct {
		TargetUserID string `json:"target_user_id"`
		RealmURL     string `json:"realm_url"`
		flagFields
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Validate required fields
	if req.TargetUserID == "" || req.RealmURL == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Target user ID and realm URL are required"))
	}

	request, err := s.requestService.CreateForUser(ctx, userID,
		req.TargetUserID, req.RealmURL, req.MayRead, req.MayWrite, req.MayManage)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.Status(fiber.StatusCreated).JSON(viewOf(request))
}

// CreateMetadataRequest handles POST /api/requests/metadata
func (s *Server) CreateMetadataRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	userID, err := s.requireUserID(c)
	if err != nil {
		return nil
	}

	var req struct {
		MetadataKey   string `json:"metadata_key"`
		MetadataValue string `json:"metadata_value"`
		RealmURL      string `json:"realm_url"`
		flagFields
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.MetadataKey == "" || req.RealmURL == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Metadata key and realm URL are required"))
	}

	request, err := s.requestService.CreateForMetadata(ctx, userID,
		req.MetadataKey, req.MetadataValue, req.RealmURL, req.MayRead, req.MayWrite, req.MayManage)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.Status(fiber.StatusCreated).JSON(viewOf(request))
}

// GetRequest handles GET /api/requests/:id
func (s *Server) GetRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseRequestID(c)
	if err != nil {
		return nil
	}

	request, err := s.requestService.Get(ctx, id)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(viewOf(request))
}

// ListMyRequests handles GET /api/requests
func (s *Server) ListMyRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	userID, err := s.requireUserID(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	requests, err := s.requestService.ListMine(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	views := make([]requestView, 0, len(requests))
	for i := range requests {
		views = append(views, viewOf(&requests[i]))
	}
	return c.JSON(views)
}

// ApplyRequestStatus handles PUT /api/internal/requests/:id/status. This is
// the authority's write-back: it lands exactly once per record, and a
// replayed identical write is answered with the stored record.
func (s *Server) ApplyRequestStatus(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseRequestID(c)
	if err != nil {
		return nil
	}

	var req struct {
		StatusCode    *int   `json:"status_code"`
		StatusMessage string `json:"status_message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.StatusCode == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Status code is required"))
	}

	request, err := s.requestService.ApplyAuthorityStatus(ctx, id, *req.StatusCode, req.StatusMessage)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(viewOf(request))
}
