package services

import (
	"context"
	"errors"

	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"
)

// TenantService turns an authenticated staff identity into the clinic scope
// that every clinic-owned operation requires.
type TenantService struct {
	userRepo   repositories.UserRepository
	clinicRepo repositories.ClinicRepository
}

// NewTenantService creates a new tenant service
func NewTenantService(userRepo repositories.UserRepository, clinicRepo repositories.ClinicRepository) *TenantService {
	return &TenantService{
		userRepo:   userRepo,
		clinicRepo: clinicRepo,
	}
}

// Resolve loads the staff user and their clinic on every call. Nothing is
// cached, so a user moved to another clinic picks it up on the next request.
func (s *TenantService) Resolve(ctx context.Context, identity domain.StaffIdentity) (domain.ClinicScope, error) {
	if identity.IsZero() {
		return domain.ClinicScope{}, domain.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ClinicScope{}, domain.ErrUnauthenticated
		}
		return domain.ClinicScope{}, err
	}
	if !user.IsActive {
		return domain.ClinicScope{}, domain.ErrUnauthenticated
	}
	if user.ClinicID == nil || *user.ClinicID == 0 {
		return domain.ClinicScope{}, domain.ErrNoClinicAssigned
	}

	clinic, err := s.clinicRepo.GetByID(ctx, *user.ClinicID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ClinicScope{}, domain.ErrNoClinicAssigned
		}
		return domain.ClinicScope{}, err
	}

	return domain.NewClinicScope(clinic.ID, user.ID, domain.Role(user.Role), clinic.Location()), nil
}
