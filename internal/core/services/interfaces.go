package services

import (
	"context"

	"clinicdesk/internal/core/domain"
)

// TenantResolver turns a verified identity into a clinic scope.
// TenantService implements it; the HTTP middleware depends on this.
type TenantResolver interface {
	Resolve(ctx context.Context, identity domain.StaffIdentity) (domain.ClinicScope, error)
}

// TokenValidator verifies access tokens
type TokenValidator interface {
	ValidateAccessToken(accessToken string) (domain.StaffIdentity, error)
}

var (
	_ TenantResolver = (*TenantService)(nil)
	_ TokenValidator = (*AuthService)(nil)
)
