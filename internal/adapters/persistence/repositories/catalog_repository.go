package repositories

import (
	"context"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// catalogRepository implements CatalogRepository interface
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// ============================================================
// Drug Types
// ============================================================

func (r *catalogRepository) CreateDrugType(ctx context.Context, scope domain.ClinicScope, drugType *models.DrugType) error {
	drugType.ID = 0
	drugType.ClinicID = scope.ClinicID()
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(drugType).Error)
}

func (r *catalogRepository) ListDrugTypes(ctx context.Context, scope domain.ClinicScope) ([]*models.DrugType, error) {
	var types []*models.DrugType
	err := r.db.WithContext(ctx).Where("clinic_id = ?", scope.ClinicID()).Order("name ASC").Find(&types).Error
	return types, translateError(err)
}

// DeleteDrugType fails while any drug uses the type
func (r *catalogRepository) DeleteDrugType(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var drugType models.DrugType
		err := forUpdate(tx).Where("id = ? AND clinic_id = ?", id, scope.ClinicID()).First(&drugType).Error
		if err != nil {
			return translateError(err)
		}
		n, err := countRefs(tx, &models.Drug{}, "drug_type_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Referencedf("drug type", "drugs")
		}
		return translateError(tx.Delete(&drugType).Error)
	})
}

// ============================================================
// Dosage / Frequency / Period
// ============================================================

func (r *catalogRepository) CreateDosageOption(ctx context.Context, scope domain.ClinicScope, option *models.DosageOption) error {
	option.ID = 0
	option.ClinicID = scope.ClinicID()
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(option).Error)
}

func (r *catalogRepository) ListDosageOptions(ctx context.Context, scope domain.ClinicScope) ([]*models.DosageOption, error) {
	var options []*models.DosageOption
	err := r.db.WithContext(ctx).
		Where("clinic_id = ?", scope.ClinicID()).
		Order("kind ASC, description ASC").
		Find(&options).Error
	return options, translateError(err)
}

// DeleteDosageOption fails while any prescription item points at the option
func (r *catalogRepository) DeleteDosageOption(ctx context.Context, scope domain.ClinicScope, kind string, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var option models.DosageOption
		err := forUpdate(tx).
			Where("id = ? AND clinic_id = ? AND kind = ?", id, scope.ClinicID(), kind).
			First(&option).Error
		if err != nil {
			return translateError(err)
		}
		n, err := countRefs(tx, &models.PrescriptionItem{},
			"dosage_id = ? OR frequency_id = ? OR period_id = ?", id, id, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Referencedf("dosage option", "prescriptions")
		}
		return translateError(tx.Delete(&option).Error)
	})
}

// ============================================================
// Drugs & Stock
// ============================================================

// CreateDrug inserts a drug whose type must belong to the same clinic
func (r *catalogRepository) CreateDrug(ctx context.Context, scope domain.ClinicScope, drug *models.Drug) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwned(tx, scope, "drug_types", "drug type", drug.DrugTypeID); err != nil {
			return err
		}
		drug.ID = 0
		drug.ClinicID = scope.ClinicID()
		drug.CreatedBy = scope.UserID()
		if err := tx.Omit(clause.Associations).Create(drug).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
}

func (r *catalogRepository) GetDrug(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Drug, error) {
	var drug models.Drug
	err := r.db.WithContext(ctx).
		Preload("DrugType").
		Where("id = ? AND clinic_id = ?", id, scope.ClinicID()).
		First(&drug).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &drug, nil
}

func (r *catalogRepository) ListDrugs(ctx context.Context, scope domain.ClinicScope, query string) ([]*models.Drug, error) {
	q := r.db.WithContext(ctx).Preload("DrugType").Where("clinic_id = ?", scope.ClinicID())
	if query != "" {
		q = q.Where("name LIKE ?", "%"+query+"%")
	}
	var drugs []*models.Drug
	err := q.Order("name ASC").Find(&drugs).Error
	return drugs, translateError(err)
}

// UpdateDrug saves descriptive columns. Quantity moves only through stock and issue.
func (r *catalogRepository) UpdateDrug(ctx context.Context, scope domain.ClinicScope, drug *models.Drug) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwned(tx, scope, "drugs", "drug", drug.ID); err != nil {
			return err
		}
		if err := requireOwned(tx, scope, "drug_types", "drug type", drug.DrugTypeID); err != nil {
			return err
		}
		err := tx.Model(&models.Drug{}).
			Where("id = ? AND clinic_id = ?", drug.ID, scope.ClinicID()).
			Select("drug_type_id", "name", "manufacturer", "unit_price", "updated_at").
			Updates(drug).Error
		return translateError(err)
	})
}

// DeleteDrug fails while any prescription item uses the drug
func (r *catalogRepository) DeleteDrug(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var drug models.Drug
		err := forUpdate(tx).Where("id = ? AND clinic_id = ?", id, scope.ClinicID()).First(&drug).Error
		if err != nil {
			return translateError(err)
		}
		n, err := countRefs(tx, &models.PrescriptionItem{}, "drug_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Referencedf("drug", "prescriptions")
		}
		if err := tx.Where("drug_id = ?", id).Delete(&models.Stock{}).Error; err != nil {
			return translateError(err)
		}
		return translateError(tx.Delete(&drug).Error)
	})
}

// AddStock records a delivery and raises the drug's quantity in one transaction
func (r *catalogRepository) AddStock(ctx context.Context, scope domain.ClinicScope, stock *models.Stock) (*models.Drug, error) {
	var drug models.Drug
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwned(tx, scope, "drugs", "drug", stock.DrugID); err != nil {
			return err
		}
		if err := forUpdate(tx).First(&drug, stock.DrugID).Error; err != nil {
			return translateError(err)
		}

		stock.ID = 0
		stock.CreatedBy = scope.UserID()
		if err := tx.Omit(clause.Associations).Create(stock).Error; err != nil {
			return translateError(err)
		}

		drug.Quantity = drug.Quantity.Add(stock.Quantity)
		return translateError(tx.Model(&drug).Update("quantity", drug.Quantity).Error)
	})
	if err != nil {
		return nil, err
	}
	return &drug, nil
}

// SeedCatalog creates the default drug types and dosage options for the
// clinic in scope. It works against any CatalogRepository implementation.
func SeedCatalog(ctx context.Context, catalog CatalogRepository, scope domain.ClinicScope) error {
	for _, name := range models.DefaultDrugTypes {
		if err := catalog.CreateDrugType(ctx, scope, &models.DrugType{Name: name}); err != nil {
			return err
		}
	}
	for _, kind := range []string{models.DosageKindDosage, models.DosageKindFrequency, models.DosageKindPeriod} {
		for _, desc := range models.DefaultDosageOptions[kind] {
			if err := catalog.CreateDosageOption(ctx, scope, &models.DosageOption{Kind: kind, Description: desc}); err != nil {
				return err
			}
		}
	}
	return nil
}
