package repositories

import (
	"context"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new staff user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

// GetByID gets a user with its clinic
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Clinic").First(&user, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetByEmail gets a user by login email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Clinic").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// Update saves a user's mutable columns
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":      user.Name,
			"password":  user.Password,
			"role":      user.Role,
			"is_active": user.IsActive,
			"clinic_id": user.ClinicID,
		}).Error)
}

// ExistsByEmail checks if an email is already taken
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, translateError(err)
}

// ListByClinic lists the staff of the scope's clinic
func (r *userRepository) ListByClinic(ctx context.Context, scope domain.ClinicScope) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("clinic_id = ?", scope.ClinicID()).
		Order("id ASC").
		Find(&users).Error
	return users, translateError(err)
}

// ============================================================
// Clinics
// ============================================================

// clinicRepository implements ClinicRepository interface
type clinicRepository struct {
	db *gorm.DB
}

// NewClinicRepository creates a new clinic repository
func NewClinicRepository(db *gorm.DB) ClinicRepository {
	return &clinicRepository{db: db}
}

// CreateWithAdmin registers a clinic and its first administrator together
func (r *clinicRepository) CreateWithAdmin(ctx context.Context, clinic *models.Clinic, admin *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(clinic).Error; err != nil {
			return translateError(err)
		}
		clinicID := clinic.ID
		admin.ClinicID = &clinicID
		if err := tx.Omit(clause.Associations).Create(admin).Error; err != nil {
			return translateError(err)
		}
		admin.Clinic = clinic
		return nil
	})
}

// GetByID gets a clinic by ID
func (r *clinicRepository) GetByID(ctx context.Context, id uint) (*models.Clinic, error) {
	var clinic models.Clinic
	if err := r.db.WithContext(ctx).First(&clinic, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &clinic, nil
}

// ExistsByEmail checks if a clinic email is already registered
func (r *clinicRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Clinic{}).Where("email = ?", email).Count(&count).Error
	return count > 0, translateError(err)
}

// List returns every clinic (background jobs only)
func (r *clinicRepository) List(ctx context.Context) ([]*models.Clinic, error) {
	var clinics []*models.Clinic
	err := r.db.WithContext(ctx).Order("id ASC").Find(&clinics).Error
	return clinics, translateError(err)
}
