package services

import (
	"context"
	"strings"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/validate"

	"github.com/shopspring/decimal"
)

// CatalogService handles the clinic's drug catalog and dosage lookups
type CatalogService struct {
	catalogRepo repositories.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalogRepo repositories.CatalogRepository) *CatalogService {
	return &CatalogService{catalogRepo: catalogRepo}
}

// DrugTypeInput represents a new drug type
type DrugTypeInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// DosageOptionInput represents a new dosage, frequency or period option
type DosageOptionInput struct {
	Description string `json:"description" validate:"required,max=100"`
}

// DrugInput represents create/update drug input
type DrugInput struct {
	DrugTypeID   uint            `json:"drug_type_id" validate:"required"`
	Name         string          `json:"name" validate:"required,max=150"`
	Manufacturer string          `json:"manufacturer" validate:"max=150"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"gte=0"`
	// Quantity is the opening stock level and is ignored on update
	Quantity decimal.Decimal `json:"quantity" validate:"gte=0"`
}

// StockInput represents a stock delivery
type StockInput struct {
	Quantity       decimal.Decimal `json:"quantity" validate:"gt=0"`
	ManufacturedAt string          `json:"manufactured_at" validate:"omitempty,datetime=2006-01-02"`
	ExpiresAt      string          `json:"expires_at" validate:"omitempty,datetime=2006-01-02"`
	Remarks        string          `json:"remarks" validate:"max=255"`
}

// DosageCatalog groups dosage options by kind
type DosageCatalog struct {
	Dosages     []*models.DosageOption `json:"dosages"`
	Frequencies []*models.DosageOption `json:"frequencies"`
	Periods     []*models.DosageOption `json:"periods"`
}

// ============================================================
// Drug types
// ============================================================

func (s *CatalogService) CreateDrugType(ctx context.Context, scope domain.ClinicScope, input *DrugTypeInput) (*models.DrugType, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.Validationf("name is required")
	}
	drugType := &models.DrugType{Name: name}
	if err := s.catalogRepo.CreateDrugType(ctx, scope, drugType); err != nil {
		return nil, err
	}
	return drugType, nil
}

func (s *CatalogService) ListDrugTypes(ctx context.Context, scope domain.ClinicScope) ([]*models.DrugType, error) {
	types, err := s.catalogRepo.ListDrugTypes(ctx, scope)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []*models.DrugType{}
	}
	return types, nil
}

// DeleteDrugType fails with ErrReferentialIntegrity while drugs use the type
func (s *CatalogService) DeleteDrugType(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return s.catalogRepo.DeleteDrugType(ctx, scope, id)
}

// ============================================================
// Dosage options
// ============================================================

func normalizeKind(kind string) (string, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	// accept the plural route segments as well
	switch kind {
	case "DOSAGES":
		kind = models.DosageKindDosage
	case "FREQUENCIES":
		kind = models.DosageKindFrequency
	case "PERIODS":
		kind = models.DosageKindPeriod
	}
	if !models.IsDosageKind(kind) {
		return "", domain.Validationf("unknown dosage kind %q", kind)
	}
	return kind, nil
}

func (s *CatalogService) CreateDosageOption(ctx context.Context, scope domain.ClinicScope, kind string, input *DosageOptionInput) (*models.DosageOption, error) {
	kind, err := normalizeKind(kind)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	option := &models.DosageOption{
		Kind:        kind,
		Description: strings.TrimSpace(input.Description),
	}
	if option.Description == "" {
		return nil, domain.Validationf("description is required")
	}
	if err := s.catalogRepo.CreateDosageOption(ctx, scope, option); err != nil {
		return nil, err
	}
	return option, nil
}

// ListDosageOptions returns the clinic's options grouped by kind
func (s *CatalogService) ListDosageOptions(ctx context.Context, scope domain.ClinicScope) (*DosageCatalog, error) {
	options, err := s.catalogRepo.ListDosageOptions(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := &DosageCatalog{
		Dosages:     []*models.DosageOption{},
		Frequencies: []*models.DosageOption{},
		Periods:     []*models.DosageOption{},
	}
	for _, o := range options {
		switch o.Kind {
		case models.DosageKindDosage:
			out.Dosages = append(out.Dosages, o)
		case models.DosageKindFrequency:
			out.Frequencies = append(out.Frequencies, o)
		case models.DosageKindPeriod:
			out.Periods = append(out.Periods, o)
		}
	}
	return out, nil
}

// DeleteDosageOption fails with ErrReferentialIntegrity while prescription items use the option
func (s *CatalogService) DeleteDosageOption(ctx context.Context, scope domain.ClinicScope, kind string, id uint) error {
	kind, err := normalizeKind(kind)
	if err != nil {
		return err
	}
	return s.catalogRepo.DeleteDosageOption(ctx, scope, kind, id)
}

// ============================================================
// Drugs
// ============================================================

// CreateDrug adds a drug. The drug type must belong to the same clinic.
func (s *CatalogService) CreateDrug(ctx context.Context, scope domain.ClinicScope, input *DrugInput) (*models.Drug, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.UnitPrice.IsNegative() || input.Quantity.IsNegative() {
		return nil, domain.Validationf("quantity and unit_price must not be negative")
	}
	drug := &models.Drug{
		DrugTypeID:   input.DrugTypeID,
		Name:         strings.TrimSpace(input.Name),
		Manufacturer: strings.TrimSpace(input.Manufacturer),
		UnitPrice:    input.UnitPrice,
		Quantity:     input.Quantity,
	}
	if err := s.catalogRepo.CreateDrug(ctx, scope, drug); err != nil {
		return nil, err
	}
	return s.catalogRepo.GetDrug(ctx, scope, drug.ID)
}

func (s *CatalogService) GetDrug(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Drug, error) {
	return s.catalogRepo.GetDrug(ctx, scope, id)
}

func (s *CatalogService) ListDrugs(ctx context.Context, scope domain.ClinicScope, query string) ([]*models.Drug, error) {
	drugs, err := s.catalogRepo.ListDrugs(ctx, scope, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if drugs == nil {
		drugs = []*models.Drug{}
	}
	return drugs, nil
}

// UpdateDrug edits descriptive fields. Stock level is not editable here.
func (s *CatalogService) UpdateDrug(ctx context.Context, scope domain.ClinicScope, id uint, input *DrugInput) (*models.Drug, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.UnitPrice.IsNegative() {
		return nil, domain.Validationf("unit_price must not be negative")
	}
	drug, err := s.catalogRepo.GetDrug(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	drug.DrugTypeID = input.DrugTypeID
	drug.Name = strings.TrimSpace(input.Name)
	drug.Manufacturer = strings.TrimSpace(input.Manufacturer)
	drug.UnitPrice = input.UnitPrice
	drug.DrugType = nil
	if err := s.catalogRepo.UpdateDrug(ctx, scope, drug); err != nil {
		return nil, err
	}
	return s.catalogRepo.GetDrug(ctx, scope, id)
}

// DeleteDrug fails with ErrReferentialIntegrity while prescription items use the drug
func (s *CatalogService) DeleteDrug(ctx context.Context, scope domain.ClinicScope, id uint) error {
	return s.catalogRepo.DeleteDrug(ctx, scope, id)
}

// AddStock records a delivery and returns the drug with its new quantity
func (s *CatalogService) AddStock(ctx context.Context, scope domain.ClinicScope, drugID uint, input *StockInput) (*models.Drug, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Quantity.IsPositive() {
		return nil, domain.Validationf("quantity must be positive")
	}
	stock := &models.Stock{
		DrugID:   drugID,
		Quantity: input.Quantity,
		Remarks:  input.Remarks,
	}
	var err error
	if stock.ManufacturedAt, err = parseOptionalDate("manufactured_at", input.ManufacturedAt); err != nil {
		return nil, err
	}
	if stock.ExpiresAt, err = parseOptionalDate("expires_at", input.ExpiresAt); err != nil {
		return nil, err
	}
	if stock.ManufacturedAt != nil && stock.ExpiresAt != nil && stock.ExpiresAt.Before(*stock.ManufacturedAt) {
		return nil, domain.Validationf("expires_at is before manufactured_at")
	}
	return s.catalogRepo.AddStock(ctx, scope, stock)
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return nil, domain.Validationf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}
