package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Catalog Tables (per clinic)
// ============================================================

// Dosage option kinds
const (
	DosageKindDosage    = "DOSAGE"
	DosageKindFrequency = "FREQUENCY"
	DosageKindPeriod    = "PERIOD"
)

// IsDosageKind reports whether kind is one of the dosage option kinds
func IsDosageKind(kind string) bool {
	switch kind {
	case DosageKindDosage, DosageKindFrequency, DosageKindPeriod:
		return true
	}
	return false
}

// DefaultDrugTypes are created for every newly registered clinic
var DefaultDrugTypes = []string{"Tablet", "Capsule", "Syrup", "Injection", "Ointment", "Drops"}

// DefaultDosageOptions are created for every newly registered clinic
var DefaultDosageOptions = map[string][]string{
	DosageKindDosage:    {"1/2 tablet", "1 tablet", "2 tablets", "5 ml", "10 ml"},
	DosageKindFrequency: {"Once a day", "Twice a day", "Three times a day", "Before sleep", "When needed"},
	DosageKindPeriod:    {"3 days", "5 days", "1 week", "2 weeks", "1 month"},
}

type DrugType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClinicID  uint      `gorm:"not null;index" json:"clinic_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Clinic    Clinic    `gorm:"foreignKey:ClinicID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (DrugType) TableName() string {
	return "drug_types"
}

// DosageOption holds the dosage, frequency and period lookups in one table
type DosageOption struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClinicID    uint      `gorm:"not null;index:idx_dosage_clinic_kind" json:"clinic_id"`
	Kind        string    `gorm:"size:10;not null;index:idx_dosage_clinic_kind" json:"kind"`
	Description string    `gorm:"size:100;not null" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	Clinic      Clinic    `gorm:"foreignKey:ClinicID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (DosageOption) TableName() string {
	return "dosage_options"
}

type Drug struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ClinicID     uint            `gorm:"not null;index" json:"clinic_id"`
	DrugTypeID   uint            `gorm:"not null;index" json:"drug_type_id"`
	Name         string          `gorm:"size:150;not null" json:"name"`
	Manufacturer string          `gorm:"size:150" json:"manufacturer"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	CreatedBy    uint            `gorm:"not null" json:"created_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DrugType     *DrugType       `gorm:"foreignKey:DrugTypeID;constraint:OnDelete:RESTRICT" json:"drug_type,omitempty"`
	Stocks       []Stock         `gorm:"foreignKey:DrugID;constraint:OnDelete:CASCADE" json:"-"`
	Clinic       Clinic          `gorm:"foreignKey:ClinicID;constraint:OnDelete:RESTRICT" json:"-"`
	Creator      User            `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Drug) TableName() string {
	return "drugs"
}

// Stock is one delivery of a drug. Adding one raises Drug.Quantity.
type Stock struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	DrugID         uint            `gorm:"not null;index" json:"drug_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity"`
	ManufacturedAt *time.Time      `gorm:"type:date" json:"manufactured_at"`
	ExpiresAt      *time.Time      `gorm:"type:date" json:"expires_at"`
	Remarks        string          `gorm:"size:255" json:"remarks"`
	CreatedBy      uint            `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Creator        User            `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Stock) TableName() string {
	return "stocks"
}
