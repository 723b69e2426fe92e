package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/config"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/jwt"
	"clinicdesk/internal/pkg/password"
	"clinicdesk/internal/pkg/validate"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	clinicRepo       repositories.ClinicRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	catalogRepo      repositories.CatalogRepository
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(repos *repositories.Repositories, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:         repos.Users,
		clinicRepo:       repos.Clinics,
		refreshTokenRepo: repos.RefreshTokens,
		catalogRepo:      repos.Catalog,
		cfg:              cfg,
	}
}

// RegisterClinicInput represents clinic registration input. The first
// account of a clinic is always its administrator.
type RegisterClinicInput struct {
	ClinicName  string `json:"clinic_name" validate:"required,max=150"`
	ClinicEmail string `json:"clinic_email" validate:"required,email"`
	Phone       string `json:"phone" validate:"max=30"`
	Address     string `json:"address" validate:"max=255"`
	Country     string `json:"country" validate:"max=60"`
	Timezone    string `json:"timezone" validate:"max=64"`
	Currency    string `json:"currency" validate:"max=8"`
	AdminName   string `json:"admin_name" validate:"required,max=100"`
	AdminEmail  string `json:"admin_email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// RegisterClinic creates a clinic, its admin account and default catalog
func (s *AuthService) RegisterClinic(ctx context.Context, input *RegisterClinicInput) (*AuthResponse, error) {
	// 1. Validate input
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !password.ValidatePassword(input.Password) {
		return nil, domain.Validationf("password must be at least %d characters with a letter and a digit", password.MinLength)
	}

	tz := strings.TrimSpace(input.Timezone)
	if tz == "" {
		tz = s.cfg.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, domain.Validationf("unknown timezone %q", tz)
	}

	// 2. Check uniqueness
	exists, err := s.clinicRepo.ExistsByEmail(ctx, input.ClinicEmail)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Validationf("clinic email is already registered")
	}
	exists, err = s.userRepo.ExistsByEmail(ctx, input.AdminEmail)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Validationf("admin email is already registered")
	}

	// 3. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Create clinic and admin together
	clinic := &models.Clinic{
		Name:     strings.TrimSpace(input.ClinicName),
		Email:    strings.ToLower(input.ClinicEmail),
		Phone:    input.Phone,
		Address:  input.Address,
		Country:  input.Country,
		Timezone: tz,
		Currency: input.Currency,
	}
	admin := &models.User{
		Name:     strings.TrimSpace(input.AdminName),
		Email:    strings.ToLower(input.AdminEmail),
		Password: hashedPassword,
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}
	if err := s.clinicRepo.CreateWithAdmin(ctx, clinic, admin); err != nil {
		return nil, err
	}

	// 5. Seed the clinic's catalog
	scope := domain.NewClinicScope(clinic.ID, admin.ID, domain.RoleAdmin, clinic.Location())
	if err := repositories.SeedCatalog(ctx, s.catalogRepo, scope); err != nil {
		log.Warn().Err(err).Uint("clinic_id", clinic.ID).Msg("default catalog not seeded")
	}

	log.Info().Uint("clinic_id", clinic.ID).Str("admin", admin.Email).Msg("clinic registered")

	return s.issue(ctx, admin)
}

// Login authenticates a staff user
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	// 1. Find user by email
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(input.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Check if user is active, then verify password
	if !user.IsActive || !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	log.Info().Uint("user_id", user.ID).Msg("user logged in")

	return s.issue(ctx, user)
}

// RefreshToken rotates the refresh token and issues a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	// 1. Validate refresh token JWT
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	// 2. Find the stored token by hash
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	if storedToken.IsRevoked() {
		return nil, domain.ErrTokenInvalid
	}
	if storedToken.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	// 3. Load user
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthenticated
	}

	// 4. Revoke old refresh token (rotation)
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken)); err != nil {
		return err
	}
	log.Debug().Msg("refresh token revoked")
	return nil
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}
	log.Info().Uint("user_id", userID).Msg("all sessions revoked")
	return nil
}

// ValidateAccessToken validates an access token and returns the caller identity
func (s *AuthService) ValidateAccessToken(accessToken string) (domain.StaffIdentity, error) {
	claims, err := jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.StaffIdentity{}, domain.ErrTokenExpired
		}
		return domain.StaffIdentity{}, domain.ErrTokenInvalid
	}
	return domain.StaffIdentity{UserID: claims.UserID, Email: claims.Email}, nil
}

// Me returns the caller's account with their clinic name
func (s *AuthService) Me(ctx context.Context, scope domain.ClinicScope) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, scope.UserID())
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// PurgeExpiredTokens deletes refresh tokens past their expiry
func (s *AuthService) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx, now)
}

// issue generates a token pair, stores the refresh hash and builds the response
func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*domain.TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Email,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	// Unique token ID keeps two refresh tokens minted in the same second distinct
	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores a refresh token hash
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, refreshToken string) error {
	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	return s.refreshTokenRepo.Create(ctx, token)
}
