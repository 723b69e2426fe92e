package repositories

import (
	"context"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// patientRepository implements PatientRepository interface
type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

// Create inserts a patient stamped with the scope's clinic
func (r *patientRepository) Create(ctx context.Context, scope domain.ClinicScope, patient *models.Patient) error {
	patient.ID = 0
	patient.ClinicID = scope.ClinicID()
	patient.CreatedBy = scope.UserID()
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(patient).Error)
}

// GetByID gets a patient of the scope's clinic
func (r *patientRepository) GetByID(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).
		Where("id = ? AND clinic_id = ?", id, scope.ClinicID()).
		First(&patient).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &patient, nil
}

// List searches patients by name, NIC or phone
func (r *patientRepository) List(ctx context.Context, scope domain.ClinicScope, filter PatientFilter) ([]*models.Patient, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Patient{}).Where("clinic_id = ?", scope.ClinicID())
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR nic LIKE ? OR phone LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var patients []*models.Patient
	q := query.Order("id DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&patients).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return patients, total, nil
}

// Update saves the editable columns. clinic_id and created_by are never written.
func (r *patientRepository) Update(ctx context.Context, scope domain.ClinicScope, patient *models.Patient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwned(tx, scope, "patients", "patient", patient.ID); err != nil {
			return err
		}
		err := tx.Model(&models.Patient{}).
			Where("id = ? AND clinic_id = ?", patient.ID, scope.ClinicID()).
			Select("first_name", "last_name", "nic", "gender", "date_of_birth", "phone",
				"address", "blood_group", "allergies", "remarks", "updated_at").
			Updates(patient).Error
		if err != nil {
			return translateError(err)
		}
		patient.ClinicID = scope.ClinicID()
		return nil
	})
}

// Delete removes a patient that nothing references
func (r *patientRepository) Delete(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patient models.Patient
		err := forUpdate(tx).Where("id = ? AND clinic_id = ?", id, scope.ClinicID()).First(&patient).Error
		if err != nil {
			return translateError(err)
		}

		refs := []struct {
			model interface{}
			name  string
		}{
			{&models.MedicalRecord{}, "medical records"},
			{&models.Prescription{}, "prescriptions"},
			{&models.QueueEntry{}, "queue entries"},
		}
		for _, ref := range refs {
			n, err := countRefs(tx, ref.model, "patient_id = ?", id)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.Referencedf("patient", ref.name)
			}
		}

		return translateError(tx.Delete(&patient).Error)
	})
}

// Count counts the scope's patients
func (r *patientRepository) Count(ctx context.Context, scope domain.ClinicScope) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Patient{}).Where("clinic_id = ?", scope.ClinicID()).Count(&n).Error
	return n, translateError(err)
}

// ============================================================
// Medical Records
// ============================================================

// medicalRecordRepository implements MedicalRecordRepository interface
type medicalRecordRepository struct {
	db *gorm.DB
}

// NewMedicalRecordRepository creates a new medical record repository
func NewMedicalRecordRepository(db *gorm.DB) MedicalRecordRepository {
	return &medicalRecordRepository{db: db}
}

// Create appends a record for a patient of the scope's clinic
func (r *medicalRecordRepository) Create(ctx context.Context, scope domain.ClinicScope, record *models.MedicalRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwned(tx, scope, "patients", "patient", record.PatientID); err != nil {
			return err
		}
		record.ID = 0
		record.CreatedBy = scope.UserID()
		return translateError(tx.Omit(clause.Associations).Create(record).Error)
	})
}

// ListByPatient lists a patient's records, newest first
func (r *medicalRecordRepository) ListByPatient(ctx context.Context, scope domain.ClinicScope, patientID uint) ([]*models.MedicalRecord, error) {
	var records []*models.MedicalRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND patient_id IN (?)", patientID, clinicPatients(r.db, scope)).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	return records, translateError(err)
}
