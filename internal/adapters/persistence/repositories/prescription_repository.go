package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// prescriptionRepository implements PrescriptionRepository interface
type prescriptionRepository struct {
	db *gorm.DB
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func preloadPrescription(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Drug").
		Preload("Items.Dosage").
		Preload("Items.Frequency").
		Preload("Items.Period").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// Create inserts a prescription and its items. Every referenced patient, drug
// and dosage option must belong to the scope's clinic.
func (r *prescriptionRepository) Create(ctx context.Context, scope domain.ClinicScope, prescription *models.Prescription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwned(tx, scope, "patients", "patient", prescription.PatientID); err != nil {
			return err
		}
		for i := range prescription.Items {
			if err := r.checkItemRefs(tx, scope, &prescription.Items[i]); err != nil {
				return err
			}
		}

		items := prescription.Items
		prescription.ID = 0
		prescription.CreatedBy = scope.UserID()
		prescription.Issued = false
		prescription.IssuedAt = nil
		prescription.IssuedBy = nil
		if err := tx.Omit(clause.Associations).Create(prescription).Error; err != nil {
			return translateError(err)
		}
		for i := range items {
			items[i].ID = 0
			items[i].PrescriptionID = prescription.ID
			if err := tx.Omit(clause.Associations).Create(&items[i]).Error; err != nil {
				return translateError(err)
			}
		}
		prescription.Items = items
		return nil
	})
}

func (r *prescriptionRepository) checkItemRefs(tx *gorm.DB, scope domain.ClinicScope, item *models.PrescriptionItem) error {
	if err := requireOwned(tx, scope, "drugs", "drug", item.DrugID); err != nil {
		return err
	}
	refs := []struct {
		id   *uint
		kind string
	}{
		{item.DosageID, models.DosageKindDosage},
		{item.FrequencyID, models.DosageKindFrequency},
		{item.PeriodID, models.DosageKindPeriod},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if err := requireOwned(tx, scope, "dosage_options", "dosage option", *ref.id); err != nil {
			return err
		}
		var option models.DosageOption
		if err := tx.First(&option, *ref.id).Error; err != nil {
			return translateError(err)
		}
		if option.Kind != ref.kind {
			return domain.Validationf("option %d is a %s, not a %s", option.ID, option.Kind, ref.kind)
		}
	}
	return nil
}

// GetByID gets a prescription of the scope's clinic with items and payments
func (r *prescriptionRepository) GetByID(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Prescription, error) {
	var prescription models.Prescription
	err := preloadPrescription(r.db.WithContext(ctx)).
		Where("id = ? AND patient_id IN (?)", id, clinicPatients(r.db, scope)).
		First(&prescription).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &prescription, nil
}

// List lists prescriptions, optionally by patient and issued flag
func (r *prescriptionRepository) List(ctx context.Context, scope domain.ClinicScope, filter PrescriptionFilter) ([]*models.Prescription, error) {
	q := preloadPrescription(r.db.WithContext(ctx)).
		Where("patient_id IN (?)", clinicPatients(r.db, scope))
	if filter.PatientID != nil {
		q = q.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.Issued != nil {
		q = q.Where("issued = ?", *filter.Issued)
	}
	var prescriptions []*models.Prescription
	err := q.Order("created_at DESC, id DESC").Find(&prescriptions).Error
	return prescriptions, translateError(err)
}

// Delete removes a pending prescription without payments
func (r *prescriptionRepository) Delete(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prescription models.Prescription
		err := forUpdate(tx).
			Where("id = ? AND patient_id IN (?)", id, clinicPatients(tx, scope)).
			First(&prescription).Error
		if err != nil {
			return translateError(err)
		}
		n, err := countRefs(tx, &models.Payment{}, "prescription_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Referencedf("prescription", "payments")
		}
		if prescription.Issued {
			return domain.Validationf("issued prescriptions cannot be deleted")
		}
		if err := tx.Where("prescription_id = ?", id).Delete(&models.PrescriptionItem{}).Error; err != nil {
			return translateError(err)
		}
		return translateError(tx.Delete(&prescription).Error)
	})
}

// Issue dispenses a prescription: stock goes down, the flag goes up and the
// optional payment is recorded. Any failure rolls all of it back.
func (r *prescriptionRepository) Issue(ctx context.Context, scope domain.ClinicScope, id uint, payment *models.Payment, now time.Time) (*models.Prescription, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prescription models.Prescription
		err := forUpdate(tx).
			Where("id = ? AND patient_id IN (?)", id, clinicPatients(tx, scope)).
			First(&prescription).Error
		if err != nil {
			return translateError(err)
		}
		if prescription.Issued {
			return domain.Validationf("prescription %d is already issued", id)
		}

		var items []models.PrescriptionItem
		if err := tx.Where("prescription_id = ?", id).Find(&items).Error; err != nil {
			return translateError(err)
		}

		needed := make(map[uint]decimal.Decimal)
		for _, item := range items {
			needed[item.DrugID] = needed[item.DrugID].Add(item.Quantity)
		}
		drugIDs := make([]uint, 0, len(needed))
		for drugID := range needed {
			drugIDs = append(drugIDs, drugID)
		}
		// lock in id order so concurrent issues cannot deadlock
		sort.Slice(drugIDs, func(i, j int) bool { return drugIDs[i] < drugIDs[j] })

		for _, drugID := range drugIDs {
			var drug models.Drug
			err := forUpdate(tx).Where("id = ? AND clinic_id = ?", drugID, scope.ClinicID()).First(&drug).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: drug %d", domain.ErrCrossTenantViolation, drugID)
			}
			if err != nil {
				return translateError(err)
			}
			if drug.Quantity.LessThan(needed[drugID]) {
				return domain.Validationf("insufficient stock for %s: have %s, need %s",
					drug.Name, drug.Quantity.String(), needed[drugID].String())
			}
			remaining := drug.Quantity.Sub(needed[drugID])
			if err := tx.Model(&drug).Update("quantity", remaining).Error; err != nil {
				return translateError(err)
			}
		}

		issuedBy := scope.UserID()
		err = tx.Model(&prescription).Updates(map[string]interface{}{
			"issued":    true,
			"issued_at": now,
			"issued_by": issuedBy,
		}).Error
		if err != nil {
			return translateError(err)
		}

		if payment != nil {
			payment.ID = 0
			payment.PrescriptionID = id
			payment.CreatedBy = scope.UserID()
			if err := tx.Omit(clause.Associations).Create(payment).Error; err != nil {
				return translateError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, scope, id)
}

// ============================================================
// Payments
// ============================================================

// CreatePayment records a payment against a prescription of the scope's clinic
func (r *prescriptionRepository) CreatePayment(ctx context.Context, scope domain.ClinicScope, payment *models.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePrescriptionOwned(tx, scope, payment.PrescriptionID); err != nil {
			return err
		}
		payment.ID = 0
		payment.CreatedBy = scope.UserID()
		return translateError(tx.Omit(clause.Associations).Create(payment).Error)
	})
}

func (r *prescriptionRepository) ListPayments(ctx context.Context, scope domain.ClinicScope, prescriptionID *uint) ([]*models.Payment, error) {
	q := r.db.WithContext(ctx).Where("prescription_id IN (?)", clinicPrescriptions(r.db, scope))
	if prescriptionID != nil {
		q = q.Where("prescription_id = ?", *prescriptionID)
	}
	var payments []*models.Payment
	err := q.Order("created_at DESC, id DESC").Find(&payments).Error
	return payments, translateError(err)
}

func (r *prescriptionRepository) DeletePayment(ctx context.Context, scope domain.ClinicScope, id uint, allowIssued bool) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).
			Where("id = ? AND prescription_id IN (?)", id, clinicPrescriptions(tx, scope)).
			First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundf("payment")
		}
		if err != nil {
			return translateError(err)
		}

		if !allowIssued {
			issued, err := countRefs(tx, &models.Prescription{}, "id = ? AND issued = ?", payment.PrescriptionID, true)
			if err != nil {
				return err
			}
			if issued > 0 {
				return fmt.Errorf("%w: payment %d belongs to an issued prescription", domain.ErrForbidden, id)
			}
		}
		return translateError(tx.Delete(&models.Payment{}, payment.ID).Error)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CountPending counts prescriptions not yet issued
func (r *prescriptionRepository) CountPending(ctx context.Context, scope domain.ClinicScope) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("issued = ? AND patient_id IN (?)", false, clinicPatients(r.db, scope)).
		Count(&n).Error
	return n, translateError(err)
}
