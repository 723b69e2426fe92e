package middleware

import (
	"strings"

	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/core/services"
	"clinicdesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth chain
const (
	LocalIdentity = "identity"
	LocalScope    = "scope"
	LocalUserID   = "userID"
	LocalClinicID = "clinicID"
)

// bearerToken reads the access token from the cookie, then the Authorization header
func bearerToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthMiddleware verifies the access token and stores the staff identity
func AuthMiddleware(tokens services.TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		identity, err := tokens.ValidateAccessToken(accessToken)
		if err != nil {
			if err == domain.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(LocalIdentity, identity)
		c.Locals(LocalUserID, identity.UserID)
		return c.Next()
	}
}

// ClinicScope resolves the caller's clinic for every request. Handlers read
// it back with GetScope.
func ClinicScope(resolver services.TenantResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := c.Locals(LocalIdentity).(domain.StaffIdentity)

		scope, err := resolver.Resolve(c.UserContext(), identity)
		if err != nil {
			return response.FromError(c, err)
		}

		c.Locals(LocalScope, scope)
		c.Locals(LocalClinicID, scope.ClinicID())
		return c.Next()
	}
}

// GetScope returns the scope set by ClinicScope, or a zero scope
func GetScope(c *fiber.Ctx) domain.ClinicScope {
	scope, _ := c.Locals(LocalScope).(domain.ClinicScope)
	return scope
}

// AdminOnly allows only clinic administrators. Must run after ClinicScope.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := GetScope(c)
		if scope.IsZero() {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !scope.IsAdmin() {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}
		return c.Next()
	}
}
