package response

import (
	"errors"

	"clinicdesk/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// UnprocessableEntity sends a 422 response for well-formed but invalid input
func UnprocessableEntity(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnprocessableEntity, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusServiceUnavailable, message)
}

// statusTable maps domain errors to HTTP status codes, first match wins
var statusTable = []struct {
	err    error
	status int
}{
	{domain.ErrUnauthenticated, fiber.StatusUnauthorized},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{domain.ErrTokenExpired, fiber.StatusUnauthorized},
	{domain.ErrTokenInvalid, fiber.StatusUnauthorized},
	{domain.ErrNoClinicAssigned, fiber.StatusForbidden},
	{domain.ErrCrossTenantViolation, fiber.StatusForbidden},
	{domain.ErrForbidden, fiber.StatusForbidden},
	{domain.ErrNotFound, fiber.StatusNotFound},
	{domain.ErrReferentialIntegrity, fiber.StatusConflict},
	{domain.ErrQueueAlreadyOpen, fiber.StatusConflict},
	{domain.ErrNoOpenQueue, fiber.StatusConflict},
	{domain.ErrDuplicateEntry, fiber.StatusConflict},
	{domain.ErrMalformedRequest, fiber.StatusBadRequest},
	{domain.ErrValidation, fiber.StatusUnprocessableEntity},
	{domain.ErrStorageUnavailable, fiber.StatusServiceUnavailable},
}

// StatusFor returns the HTTP status for an error
func StatusFor(err error) int {
	for _, row := range statusTable {
		if errors.Is(err, row.err) {
			return row.status
		}
	}
	return fiber.StatusInternalServerError
}

// FromError translates a service error into the standard error envelope.
// Unknown errors are logged and hidden behind a generic message.
func FromError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	switch status {
	case fiber.StatusInternalServerError:
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return InternalServerError(c, "Internal server error")
	case fiber.StatusServiceUnavailable:
		log.Warn().Err(err).Str("path", c.Path()).Msg("storage unavailable")
		return ServiceUnavailable(c, "Service temporarily unavailable, please retry")
	}
	if errors.Is(err, domain.ErrCrossTenantViolation) {
		log.Warn().Err(err).
			Interface("user_id", c.Locals("userID")).
			Interface("clinic_id", c.Locals("clinicID")).
			Str("path", c.Path()).
			Msg("cross-tenant reference rejected")
	}
	return Error(c, status, err.Error())
}
