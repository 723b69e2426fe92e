package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"clinicdesk/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthenticated, fiber.StatusUnauthorized},
		{domain.ErrTokenExpired, fiber.StatusUnauthorized},
		{domain.ErrNoClinicAssigned, fiber.StatusForbidden},
		{fmt.Errorf("%w: drug 3", domain.ErrCrossTenantViolation), fiber.StatusForbidden},
		{domain.NotFoundf("patient"), fiber.StatusNotFound},
		{domain.Referencedf("drug", "prescriptions"), fiber.StatusConflict},
		{domain.ErrQueueAlreadyOpen, fiber.StatusConflict},
		{domain.ErrNoOpenQueue, fiber.StatusConflict},
		{domain.ErrMalformedRequest, fiber.StatusBadRequest},
		{domain.Validationf("bad"), fiber.StatusUnprocessableEntity},
		{domain.ErrStorageUnavailable, fiber.StatusServiceUnavailable},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func serve(t *testing.T, err error) (int, Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return FromError(c, err) })

	resp, e := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, e)
	defer resp.Body.Close()
	body, e := io.ReadAll(resp.Body)
	require.NoError(t, e)

	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestFromError_HidesInternalErrors(t *testing.T) {
	status, body := serve(t, errors.New("dial tcp 10.0.0.3:3306: secret detail"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.False(t, body.Success)
	assert.Equal(t, "Internal server error", body.Error)
}

func TestFromError_ExposesDomainMessage(t *testing.T) {
	status, body := serve(t, domain.Validationf("quantity must be positive"))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Error, "quantity must be positive")

	status, body = serve(t, fmt.Errorf("%w: db down", domain.ErrStorageUnavailable))
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.NotContains(t, body.Error, "db down")
}
