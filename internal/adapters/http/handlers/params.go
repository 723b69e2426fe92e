package handlers

import (
	"fmt"
	"strconv"

	"clinicdesk/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// paramID parses a numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrMalformedRequest, name)
	}
	return uint(id), nil
}

// queryUint parses an optional numeric query parameter
func queryUint(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrMalformedRequest, name)
	}
	id := uint(v)
	return &id, nil
}

// queryBool parses an optional boolean query parameter
func queryBool(c *fiber.Ctx, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrMalformedRequest, name)
	}
	return &v, nil
}
