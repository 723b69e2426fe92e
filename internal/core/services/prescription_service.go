package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/validate"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PrescriptionService handles prescriptions, issuing and payments
type PrescriptionService struct {
	prescriptionRepo repositories.PrescriptionRepository
	patientRepo      repositories.PatientRepository
	now              func() time.Time
}

// NewPrescriptionService creates a new prescription service
func NewPrescriptionService(prescriptionRepo repositories.PrescriptionRepository, patientRepo repositories.PatientRepository) *PrescriptionService {
	return &PrescriptionService{
		prescriptionRepo: prescriptionRepo,
		patientRepo:      patientRepo,
		now:              time.Now,
	}
}

// PrescriptionItemInput is one drug line
type PrescriptionItemInput struct {
	DrugID      uint            `json:"drug_id" validate:"required"`
	DosageID    *uint           `json:"dosage_id"`
	FrequencyID *uint           `json:"frequency_id"`
	PeriodID    *uint           `json:"period_id"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	Remarks     string          `json:"remarks" validate:"max=255"`
}

// CreatePrescriptionInput represents a new prescription
type CreatePrescriptionInput struct {
	PatientID uint                    `json:"patient_id" validate:"required"`
	Remarks   string                  `json:"remarks"`
	Items     []PrescriptionItemInput `json:"items" validate:"required,min=1,dive"`
}

// IssueInput optionally records a payment while issuing
type IssueInput struct {
	Amount  *decimal.Decimal `json:"amount"`
	Remarks string           `json:"remarks" validate:"max=255"`
}

// PaymentInput represents a payment against a prescription
type PaymentInput struct {
	Amount  decimal.Decimal `json:"amount" validate:"gt=0"`
	Remarks string          `json:"remarks" validate:"max=255"`
}

// PrescriptionListFilter narrows ListPrescriptions
type PrescriptionListFilter struct {
	PatientID *uint
	Issued    *bool
}

// CreatePrescription stores a prescription with its items. Patient, drugs and
// dosage options must all belong to the caller's clinic.
func (s *PrescriptionService) CreatePrescription(ctx context.Context, scope domain.ClinicScope, input *CreatePrescriptionInput) (*models.Prescription, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	prescription := &models.Prescription{
		PatientID: input.PatientID,
		Remarks:   strings.TrimSpace(input.Remarks),
		Items:     make([]models.PrescriptionItem, 0, len(input.Items)),
	}
	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return nil, domain.Validationf("items[%d].quantity must be positive", i)
		}
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			DrugID:      item.DrugID,
			DosageID:    item.DosageID,
			FrequencyID: item.FrequencyID,
			PeriodID:    item.PeriodID,
			Quantity:    item.Quantity,
			Remarks:     item.Remarks,
		})
	}

	if err := s.prescriptionRepo.Create(ctx, scope, prescription); err != nil {
		return nil, err
	}

	log.Info().
		Uint("clinic_id", scope.ClinicID()).
		Uint("prescription_id", prescription.ID).
		Int("items", len(prescription.Items)).
		Msg("prescription created")

	return s.prescriptionRepo.GetByID(ctx, scope, prescription.ID)
}

func (s *PrescriptionService) GetPrescription(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Prescription, error) {
	return s.prescriptionRepo.GetByID(ctx, scope, id)
}

// ListPrescriptions lists the clinic's prescriptions, newest first
func (s *PrescriptionService) ListPrescriptions(ctx context.Context, scope domain.ClinicScope, filter PrescriptionListFilter) ([]*models.Prescription, error) {
	list, err := s.prescriptionRepo.List(ctx, scope, repositories.PrescriptionFilter{
		PatientID: filter.PatientID,
		Issued:    filter.Issued,
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Prescription{}
	}
	return list, nil
}

// ListForPatient lists one patient's prescriptions. The patient must be visible.
func (s *PrescriptionService) ListForPatient(ctx context.Context, scope domain.ClinicScope, patientID uint) ([]*models.Prescription, error) {
	if _, err := s.patientRepo.GetByID(ctx, scope, patientID); err != nil {
		return nil, err
	}
	return s.ListPrescriptions(ctx, scope, PrescriptionListFilter{PatientID: &patientID})
}

// DeletePrescription removes an unissued prescription without payments
func (s *PrescriptionService) DeletePrescription(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return s.prescriptionRepo.Delete(ctx, scope, id)
}

// IssuePrescription dispenses the drugs, marks the prescription issued and
// records the payment, all or nothing.
func (s *PrescriptionService) IssuePrescription(ctx context.Context, scope domain.ClinicScope, id uint, input *IssueInput) (*models.Prescription, error) {
	if input == nil {
		input = &IssueInput{}
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var payment *models.Payment
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			return nil, domain.Validationf("amount must not be negative")
		}
		if input.Amount.IsPositive() {
			payment = &models.Payment{
				Amount:  input.Amount.Round(2),
				Remarks: input.Remarks,
			}
		}
	}

	prescription, err := s.prescriptionRepo.Issue(ctx, scope, id, payment, s.now())
	if err != nil {
		return nil, err
	}

	evt := log.Info().Uint("clinic_id", scope.ClinicID()).Uint("prescription_id", id)
	if payment != nil {
		evt = evt.Str("amount", payment.Amount.StringFixed(2))
	}
	evt.Msg("prescription issued")

	return prescription, nil
}

// ============================================================
// Payments
// ============================================================

// AddPayment records a further payment against a prescription
func (s *PrescriptionService) AddPayment(ctx context.Context, scope domain.ClinicScope, prescriptionID uint, input *PaymentInput) (*models.Payment, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, domain.Validationf("amount must be positive")
	}
	payment := &models.Payment{
		PrescriptionID: prescriptionID,
		Amount:         input.Amount.Round(2),
		Remarks:        input.Remarks,
	}
	if err := s.prescriptionRepo.CreatePayment(ctx, scope, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPayments lists payments, optionally of one prescription
func (s *PrescriptionService) ListPayments(ctx context.Context, scope domain.ClinicScope, prescriptionID *uint) ([]*models.Payment, error) {
	payments, err := s.prescriptionRepo.ListPayments(ctx, scope, prescriptionID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// DeletePayment removes a payment. A payment of an issued prescription may
// only be removed by an admin.
func (s *PrescriptionService) DeletePayment(ctx context.Context, scope domain.ClinicScope, id uint) error {
	payment, err := s.prescriptionRepo.DeletePayment(ctx, scope, id, scope.IsAdmin())
	if errors.Is(err, domain.ErrForbidden) {
		log.Warn().
			Uint("clinic_id", scope.ClinicID()).
			Uint("user_id", scope.UserID()).
			Uint("payment_id", id).
			Msg("payment delete refused")
	}
	if err != nil {
		return err
	}

	log.Info().
		Uint("clinic_id", scope.ClinicID()).
		Uint("user_id", scope.UserID()).
		Uint("payment_id", payment.ID).
		Uint("prescription_id", payment.PrescriptionID).
		Str("amount", payment.Amount.StringFixed(2)).
		Msg("payment deleted")
	return nil
}
