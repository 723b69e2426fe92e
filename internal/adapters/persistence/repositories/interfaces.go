package repositories

import (
	"context"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"
)

// Every clinic-owned repository takes a domain.ClinicScope. Reads filter by the
// scope's clinic (directly or through patients) and writes stamp it.

// ClinicRepository defines clinic (tenant root) access
type ClinicRepository interface {
	CreateWithAdmin(ctx context.Context, clinic *models.Clinic, admin *models.User) error
	GetByID(ctx context.Context, id uint) (*models.Clinic, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*models.Clinic, error)
}

// UserRepository defines staff user access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListByClinic(ctx context.Context, scope domain.ClinicScope) ([]*models.User, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PatientFilter narrows patient listing
type PatientFilter struct {
	Query  string
	Offset int
	Limit  int
}

// PatientRepository defines scoped patient access
type PatientRepository interface {
	Create(ctx context.Context, scope domain.ClinicScope, patient *models.Patient) error
	GetByID(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Patient, error)
	List(ctx context.Context, scope domain.ClinicScope, filter PatientFilter) ([]*models.Patient, int64, error)
	Update(ctx context.Context, scope domain.ClinicScope, patient *models.Patient) error
	Delete(ctx context.Context, scope domain.ClinicScope, id uint) error
	Count(ctx context.Context, scope domain.ClinicScope) (int64, error)
}

// MedicalRecordRepository defines append-only access to medical records
type MedicalRecordRepository interface {
	Create(ctx context.Context, scope domain.ClinicScope, record *models.MedicalRecord) error
	ListByPatient(ctx context.Context, scope domain.ClinicScope, patientID uint) ([]*models.MedicalRecord, error)
}

// CatalogRepository defines scoped drug / dosage catalog access
type CatalogRepository interface {
	CreateDrugType(ctx context.Context, scope domain.ClinicScope, drugType *models.DrugType) error
	ListDrugTypes(ctx context.Context, scope domain.ClinicScope) ([]*models.DrugType, error)
	DeleteDrugType(ctx context.Context, scope domain.ClinicScope, id uint) error

	CreateDosageOption(ctx context.Context, scope domain.ClinicScope, option *models.DosageOption) error
	ListDosageOptions(ctx context.Context, scope domain.ClinicScope) ([]*models.DosageOption, error)
	DeleteDosageOption(ctx context.Context, scope domain.ClinicScope, kind string, id uint) error

	CreateDrug(ctx context.Context, scope domain.ClinicScope, drug *models.Drug) error
	GetDrug(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Drug, error)
	ListDrugs(ctx context.Context, scope domain.ClinicScope, query string) ([]*models.Drug, error)
	UpdateDrug(ctx context.Context, scope domain.ClinicScope, drug *models.Drug) error
	DeleteDrug(ctx context.Context, scope domain.ClinicScope, id uint) error
	AddStock(ctx context.Context, scope domain.ClinicScope, stock *models.Stock) (*models.Drug, error)
}

// PrescriptionFilter narrows prescription listing
type PrescriptionFilter struct {
	PatientID *uint
	Issued    *bool
}

// PrescriptionRepository defines scoped prescription and payment access
type PrescriptionRepository interface {
	Create(ctx context.Context, scope domain.ClinicScope, prescription *models.Prescription) error
	GetByID(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Prescription, error)
	List(ctx context.Context, scope domain.ClinicScope, filter PrescriptionFilter) ([]*models.Prescription, error)
	Delete(ctx context.Context, scope domain.ClinicScope, id uint) error
	// Issue decrements stock, marks the prescription issued and records the
	// payment (when non-nil) as one unit.
	Issue(ctx context.Context, scope domain.ClinicScope, id uint, payment *models.Payment, now time.Time) (*models.Prescription, error)

	CreatePayment(ctx context.Context, scope domain.ClinicScope, payment *models.Payment) error
	ListPayments(ctx context.Context, scope domain.ClinicScope, prescriptionID *uint) ([]*models.Payment, error)
	// DeletePayment removes a payment and returns it. Payments of issued
	// prescriptions are refused with ErrForbidden unless allowIssued is set.
	DeletePayment(ctx context.Context, scope domain.ClinicScope, id uint, allowIssued bool) (*models.Payment, error)
	CountPending(ctx context.Context, scope domain.ClinicScope) (int64, error)
}

// QueueRepository defines the daily queue. Position assignment happens
// inside the store under a row lock (or the store mutex).
type QueueRepository interface {
	Create(ctx context.Context, scope domain.ClinicScope, queue *models.Queue) error
	GetOpen(ctx context.Context, scope domain.ClinicScope) (*models.Queue, error)
	Append(ctx context.Context, scope domain.ClinicScope, patientID uint, now time.Time) (*models.Queue, *models.QueueEntry, error)
	Advance(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.QueueEntry, error)
	Remove(ctx context.Context, scope domain.ClinicScope, entryID uint, now time.Time) (*models.QueueEntry, error)
	Close(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.Queue, error)
	ListWaiting(ctx context.Context, scope domain.ClinicScope, queueID uint) ([]models.QueueEntryView, error)
	ListEntries(ctx context.Context, scope domain.ClinicScope, queueID uint) ([]models.QueueEntryView, error)
	ListByDate(ctx context.Context, scope domain.ClinicScope, date string) ([]*models.Queue, error)
}

// DashboardRepository computes the issued/payment aggregate from one snapshot
type DashboardRepository interface {
	Metrics(ctx context.Context, scope domain.ClinicScope) (*models.DashboardMetrics, error)
}

// Repositories groups every repository the services need
type Repositories struct {
	Clinics       ClinicRepository
	Users         UserRepository
	RefreshTokens RefreshTokenRepository
	Patients      PatientRepository
	Records       MedicalRecordRepository
	Catalog       CatalogRepository
	Prescriptions PrescriptionRepository
	Queues        QueueRepository
	Dashboard     DashboardRepository
	// Ping reports storage health
	Ping func(ctx context.Context) error
}
