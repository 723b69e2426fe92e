package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Prescriptions & Payments
// ============================================================

// Prescription belongs to a clinic through its patient
type Prescription struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	PatientID uint               `gorm:"not null;index" json:"patient_id"`
	CreatedBy uint               `gorm:"not null" json:"created_by"`
	Issued    bool               `gorm:"not null;default:false;index" json:"issued"`
	IssuedAt  *time.Time         `json:"issued_at"`
	IssuedBy  *uint              `json:"issued_by"`
	Remarks   string             `gorm:"type:text" json:"remarks"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	Items     []PrescriptionItem `gorm:"foreignKey:PrescriptionID;constraint:OnDelete:CASCADE" json:"items"`
	Payments  []Payment          `gorm:"foreignKey:PrescriptionID;constraint:OnDelete:RESTRICT" json:"payments,omitempty"`
	Patient   Patient            `gorm:"foreignKey:PatientID;constraint:OnDelete:RESTRICT" json:"-"`
	Creator   User               `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

// PrescriptionItem is one drug line. Catalog references are restrict-on-delete.
type PrescriptionItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PrescriptionID uint            `gorm:"not null;index" json:"prescription_id"`
	DrugID         uint            `gorm:"not null;index" json:"drug_id"`
	DosageID       *uint           `gorm:"index" json:"dosage_id"`
	FrequencyID    *uint           `gorm:"index" json:"frequency_id"`
	PeriodID       *uint           `gorm:"index" json:"period_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity"`
	Remarks        string          `gorm:"size:255" json:"remarks"`
	Drug           *Drug           `gorm:"foreignKey:DrugID;constraint:OnDelete:RESTRICT" json:"drug,omitempty"`
	Dosage         *DosageOption   `gorm:"foreignKey:DosageID;constraint:OnDelete:RESTRICT" json:"dosage,omitempty"`
	Frequency      *DosageOption   `gorm:"foreignKey:FrequencyID;constraint:OnDelete:RESTRICT" json:"frequency,omitempty"`
	Period         *DosageOption   `gorm:"foreignKey:PeriodID;constraint:OnDelete:RESTRICT" json:"period,omitempty"`
}

func (PrescriptionItem) TableName() string {
	return "prescription_items"
}

// DosageRefs lists the non-nil dosage option ids of the item
func (i *PrescriptionItem) DosageRefs() []uint {
	var ids []uint
	for _, id := range []*uint{i.DosageID, i.FrequencyID, i.PeriodID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

// Payment belongs to exactly one prescription
type Payment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PrescriptionID uint            `gorm:"not null;index" json:"prescription_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Remarks        string          `gorm:"size:255" json:"remarks"`
	CreatedBy      uint            `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Creator        User            `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// ============================================================
// Aggregates
// ============================================================

// DashboardMetrics is read in one statement so both values describe the same rows
type DashboardMetrics struct {
	IssuedCount   int64           `json:"issued_count"`
	TotalPayments decimal.Decimal `json:"total_payments"`
}
