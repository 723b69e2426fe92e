package repositories

import (
	"errors"
	"fmt"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ============================================================
// Shared scoping helpers for the gorm repositories
// ============================================================

// clinicPatients is a subquery of the patient ids owned by the scope
func clinicPatients(tx *gorm.DB, scope domain.ClinicScope) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Patient{}).
		Select("id").
		Where("clinic_id = ?", scope.ClinicID())
}

// clinicPrescriptions is a subquery of the prescription ids owned by the scope
func clinicPrescriptions(tx *gorm.DB, scope domain.ClinicScope) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Prescription{}).
		Select("id").
		Where("patient_id IN (?)", clinicPatients(tx, scope))
}

// requireOwned checks that a row of a clinic_id-carrying table belongs to the
// scope. A missing row is ErrNotFound, a foreign one ErrCrossTenantViolation.
func requireOwned(tx *gorm.DB, scope domain.ClinicScope, table, entity string, id uint) error {
	var row struct{ ClinicID uint }
	err := tx.Table(table).Select("clinic_id").Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundf(entity)
	}
	if err != nil {
		return translateError(err)
	}
	if row.ClinicID != scope.ClinicID() {
		return fmt.Errorf("%w: %s %d", domain.ErrCrossTenantViolation, entity, id)
	}
	return nil
}

// requirePrescriptionOwned does the same for prescriptions, which reach their
// clinic through the patient
func requirePrescriptionOwned(tx *gorm.DB, scope domain.ClinicScope, id uint) error {
	var row struct{ ClinicID uint }
	err := tx.Table("prescriptions").
		Select("patients.clinic_id").
		Joins("JOIN patients ON patients.id = prescriptions.patient_id").
		Where("prescriptions.id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundf("prescription")
	}
	if err != nil {
		return translateError(err)
	}
	if row.ClinicID != scope.ClinicID() {
		return fmt.Errorf("%w: prescription %d", domain.ErrCrossTenantViolation, id)
	}
	return nil
}

// countRefs counts rows of model matching the condition
func countRefs(tx *gorm.DB, model interface{}, query string, args ...interface{}) (int64, error) {
	var n int64
	err := tx.Model(model).Where(query, args...).Count(&n).Error
	return n, translateError(err)
}

// forUpdate adds a row lock when the dialect supports it
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
