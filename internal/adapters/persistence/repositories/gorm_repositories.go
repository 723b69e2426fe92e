package repositories

import (
	"context"

	"gorm.io/gorm"
)

// NewGormRepositories wires every repository to one gorm connection
func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Clinics:       NewClinicRepository(db),
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
		Patients:      NewPatientRepository(db),
		Records:       NewMedicalRecordRepository(db),
		Catalog:       NewCatalogRepository(db),
		Prescriptions: NewPrescriptionRepository(db),
		Queues:        NewQueueRepository(db),
		Dashboard:     NewDashboardRepository(db),
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return translateError(sqlDB.PingContext(ctx))
		},
	}
}
