package services

import (
	"context"
	"strings"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/password"
	"clinicdesk/internal/pkg/validate"

	"github.com/rs/zerolog/log"
)

// UserService handles staff account settings within a clinic
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateAccountInput represents a new staff account in the admin's clinic
type CreateAccountInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
}

// UpdateAccountInput represents admin changes to a staff account
type UpdateAccountInput struct {
	Role     *string `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
	IsActive *bool   `json:"is_active"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// CreateAccount adds a staff account to the caller's clinic. The clinic
// always comes from the scope.
func (s *UserService) CreateAccount(ctx context.Context, scope domain.ClinicScope, input *CreateAccountInput) (*models.UserResponse, error) {
	if !scope.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !password.ValidatePassword(input.Password) {
		return nil, domain.Validationf("password must be at least %d characters with a letter and a digit", password.MinLength)
	}

	email := strings.ToLower(input.Email)
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Validationf("email is already registered")
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = string(domain.RoleStaff)
	}
	clinicID := scope.ClinicID()
	user := &models.User{
		ClinicID: &clinicID,
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: hashedPassword,
		Role:     role,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Uint("clinic_id", clinicID).Uint("user_id", user.ID).Str("role", role).Msg("staff account created")
	return user.ToResponse(), nil
}

// ListAccounts lists the staff of the caller's clinic
func (s *UserService) ListAccounts(ctx context.Context, scope domain.ClinicScope) ([]*models.UserResponse, error) {
	users, err := s.userRepo.ListByClinic(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make([]*models.UserResponse, len(users))
	for i, u := range users {
		out[i] = u.ToResponse()
	}
	return out, nil
}

// UpdateAccount changes role or active flag of a staff account in the same clinic
func (s *UserService) UpdateAccount(ctx context.Context, scope domain.ClinicScope, id uint, input *UpdateAccountInput) (*models.UserResponse, error) {
	if !scope.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.sameClinicUser(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	// Prevent admin from demoting or deactivating self
	if id == scope.UserID() && (input.Role != nil || (input.IsActive != nil && !*input.IsActive)) {
		return nil, domain.Validationf("cannot change your own role or status")
	}

	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// ChangePassword changes the caller's password
func (s *UserService) ChangePassword(ctx context.Context, scope domain.ClinicScope, input *ChangePasswordInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, scope.UserID())
	if err != nil {
		return err
	}

	// Verify old password
	if !password.Verify(input.OldPassword, user.Password) {
		return domain.Validationf("old password is incorrect")
	}
	if !password.ValidatePassword(input.NewPassword) {
		return domain.Validationf("password must be at least %d characters with a letter and a digit", password.MinLength)
	}

	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	return s.userRepo.Update(ctx, user)
}

// sameClinicUser loads a user and hides accounts of other clinics
func (s *UserService) sameClinicUser(ctx context.Context, scope domain.ClinicScope, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ClinicID == nil || *user.ClinicID != scope.ClinicID() {
		return nil, domain.NotFoundf("user")
	}
	return user, nil
}
