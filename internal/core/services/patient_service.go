package services

import (
	"context"
	"strings"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/pagination"
	"clinicdesk/internal/pkg/validate"

	"github.com/rs/zerolog/log"
)

// PatientService handles patients and their medical records
type PatientService struct {
	patientRepo repositories.PatientRepository
	recordRepo  repositories.MedicalRecordRepository
}

// NewPatientService creates a new patient service
func NewPatientService(patientRepo repositories.PatientRepository, recordRepo repositories.MedicalRecordRepository) *PatientService {
	return &PatientService{
		patientRepo: patientRepo,
		recordRepo:  recordRepo,
	}
}

// PatientInput represents create/update patient input. Any clinic id sent by
// the client is ignored; the patient always belongs to the caller's clinic.
type PatientInput struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	NIC         string `json:"nic" validate:"max=30"`
	Gender      string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Phone       string `json:"phone" validate:"max=30"`
	Address     string `json:"address" validate:"max=255"`
	BloodGroup  string `json:"blood_group" validate:"max=5"`
	Allergies   string `json:"allergies"`
	Remarks     string `json:"remarks"`
}

// MedicalRecordInput represents a new medical record entry
type MedicalRecordInput struct {
	Content string `json:"content" validate:"required"`
}

// ListPatientsOutput is a page of patients
type ListPatientsOutput struct {
	Patients []*models.Patient `json:"patients"`
	Meta     *pagination.Meta  `json:"meta"`
}

func (in *PatientInput) apply(p *models.Patient) error {
	p.FirstName = strings.TrimSpace(in.FirstName)
	p.LastName = strings.TrimSpace(in.LastName)
	p.NIC = strings.TrimSpace(in.NIC)
	p.Gender = in.Gender
	p.Phone = in.Phone
	p.Address = in.Address
	p.BloodGroup = in.BloodGroup
	p.Allergies = in.Allergies
	p.Remarks = in.Remarks
	p.DateOfBirth = nil
	if in.DateOfBirth != "" {
		dob, err := time.Parse(domain.DateLayout, in.DateOfBirth)
		if err != nil {
			return domain.Validationf("date_of_birth must be YYYY-MM-DD")
		}
		if dob.After(time.Now()) {
			return domain.Validationf("date_of_birth is in the future")
		}
		p.DateOfBirth = &dob
	}
	if p.FirstName == "" {
		return domain.Validationf("first_name is required")
	}
	return nil
}

// CreatePatient registers a patient in the caller's clinic
func (s *PatientService) CreatePatient(ctx context.Context, scope domain.ClinicScope, input *PatientInput) (*models.Patient, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	patient := &models.Patient{}
	if err := input.apply(patient); err != nil {
		return nil, err
	}
	if err := s.patientRepo.Create(ctx, scope, patient); err != nil {
		return nil, err
	}

	log.Info().Uint("clinic_id", scope.ClinicID()).Uint("patient_id", patient.ID).Msg("patient created")
	return patient, nil
}

// GetPatient returns a patient of the caller's clinic
func (s *PatientService) GetPatient(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Patient, error) {
	return s.patientRepo.GetByID(ctx, scope, id)
}

// ListPatients lists patients, optionally matching name, NIC or phone
func (s *PatientService) ListPatients(ctx context.Context, scope domain.ClinicScope, query string, params *pagination.Params) (*ListPatientsOutput, error) {
	if params == nil {
		params = pagination.NewParams(1, pagination.DefaultLimit)
	}
	patients, total, err := s.patientRepo.List(ctx, scope, repositories.PatientFilter{
		Query:  strings.TrimSpace(query),
		Offset: params.Offset,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []*models.Patient{}
	}
	return &ListPatientsOutput{
		Patients: patients,
		Meta:     pagination.GetMeta(params, total),
	}, nil
}

// Search is the global search box: the first page of matching patients
func (s *PatientService) Search(ctx context.Context, scope domain.ClinicScope, query string) ([]*models.Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Patient{}, nil
	}
	out, err := s.ListPatients(ctx, scope, query, pagination.NewParams(1, pagination.DefaultLimit))
	if err != nil {
		return nil, err
	}
	return out.Patients, nil
}

// UpdatePatient edits a patient. The owning clinic never changes.
func (s *PatientService) UpdatePatient(ctx context.Context, scope domain.ClinicScope, id uint, input *PatientInput) (*models.Patient, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	patient, err := s.patientRepo.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := input.apply(patient); err != nil {
		return nil, err
	}
	if err := s.patientRepo.Update(ctx, scope, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient removes a patient with no history
func (s *PatientService) DeletePatient(ctx context.Context, scope domain.ClinicScope, id uint) error {
	if err := s.patientRepo.Delete(ctx, scope, id); err != nil {
		return err
	}
	log.Info().Uint("clinic_id", scope.ClinicID()).Uint("patient_id", id).Msg("patient deleted")
	return nil
}

// AddMedicalRecord appends a record to a patient's history
func (s *PatientService) AddMedicalRecord(ctx context.Context, scope domain.ClinicScope, patientID uint, input *MedicalRecordInput) (*models.MedicalRecord, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	record := &models.MedicalRecord{
		PatientID: patientID,
		Content:   strings.TrimSpace(input.Content),
	}
	if record.Content == "" {
		return nil, domain.Validationf("content is required")
	}
	if err := s.recordRepo.Create(ctx, scope, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListMedicalRecords lists a patient's records, newest first
func (s *PatientService) ListMedicalRecords(ctx context.Context, scope domain.ClinicScope, patientID uint) ([]*models.MedicalRecord, error) {
	if _, err := s.patientRepo.GetByID(ctx, scope, patientID); err != nil {
		return nil, err
	}
	records, err := s.recordRepo.ListByPatient(ctx, scope, patientID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.MedicalRecord{}
	}
	return records, nil
}
