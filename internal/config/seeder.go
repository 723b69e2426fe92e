package config

import (
	"context"
	"errors"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/password"

	"github.com/rs/zerolog/log"
)

// Demo clinic credentials. For development only; in production clinics
// register through POST /auth/register-clinic.
const (
	DemoClinicEmail = "demo@clinicdesk.io"
	DemoAdminEmail  = "admin@clinicdesk.io"
	DemoPassword    = "admin123456"
)

// Seeder handles database seeding
type Seeder struct {
	repos *repositories.Repositories
	tz    string
}

// NewSeeder creates a new seeder instance
func NewSeeder(repos *repositories.Repositories, cfg *Config) *Seeder {
	return &Seeder{repos: repos, tz: cfg.DefaultTimezone}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	log.Info().Msg("running database seeders")

	if err := s.seedDemoClinic(ctx); err != nil {
		log.Warn().Err(err).Msg("demo clinic seeder skipped")
	}

	log.Info().Msg("database seeding completed")
	return nil
}

// seedDemoClinic creates a clinic, its admin and the default catalog
func (s *Seeder) seedDemoClinic(ctx context.Context) error {
	exists, err := s.repos.Clinics.ExistsByEmail(ctx, DemoClinicEmail)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hashed, err := password.Hash(DemoPassword)
	if err != nil {
		return err
	}

	clinic := &models.Clinic{
		Name:     "Demo Clinic",
		Email:    DemoClinicEmail,
		Country:  "LK",
		Timezone: s.tz,
		Currency: "LKR",
	}
	admin := &models.User{
		Name:     "Demo Admin",
		Email:    DemoAdminEmail,
		Password: hashed,
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}
	if err := s.repos.Clinics.CreateWithAdmin(ctx, clinic, admin); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return nil
		}
		return err
	}

	scope := domain.NewClinicScope(clinic.ID, admin.ID, domain.RoleAdmin, clinic.Location())
	if err := repositories.SeedCatalog(ctx, s.repos.Catalog, scope); err != nil {
		return err
	}

	log.Info().Uint("clinic_id", clinic.ID).Str("admin", admin.Email).Msg("demo clinic created")
	return nil
}
