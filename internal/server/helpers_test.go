package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	return context.Background()
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		defaultLimit   int
		expectedLimit  int
		expectedOffset int
	}{
		{"Defaults", "", 20, 20, 0},
		{"Explicit", "limit=5&offset=10", 20, 5, 10},
		{"Capped", "limit=5000", 20, maxPaginationLimit, 0},
		{"Negative Limit", "limit=-1", 20, 20, 0},
		{"Negative Offset", "offset=-7", 20, 20, 0},
		{"Non-numeric", "limit=abc&offset=xyz", 20, 20, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got Pagination
			app.Get("/p", func(c *fiber.Ctx) error {
				got = parsePagination(c, tt.defaultLimit)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/p?"+tt.query, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, tt.expectedLimit, got.Limit)
			assert.Equal(t, tt.expectedOffset, got.Offset)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := setupTestServer(t, "")
	app := fiber.New()
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Readiness degrades without Redis but the database check still runs.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}
