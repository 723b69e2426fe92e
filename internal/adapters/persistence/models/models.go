package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Tenancy & Auth Tables
// ============================================================

// Clinic represents clinics table. A clinic is the tenant root.
type Clinic struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	Country   string    `gorm:"size:60" json:"country"`
	Timezone  string    `gorm:"size:64;not null;default:'UTC'" json:"timezone"`
	Currency  string    `gorm:"size:8;default:'USD'" json:"currency"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Clinic) TableName() string {
	return "clinics"
}

// Location returns the clinic time zone, falling back to UTC for unknown names
func (c *Clinic) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// User represents users table (clinic staff)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ClinicID  *uint          `gorm:"index" json:"clinic_id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'STAFF'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Clinic    *Clinic        `gorm:"foreignKey:ClinicID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint      `json:"id"`
	ClinicID   *uint     `json:"clinic_id"`
	ClinicName string    `json:"clinic_name,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:        u.ID,
		ClinicID:  u.ClinicID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.Clinic != nil {
		resp.ClinicName = u.Clinic.Name
	}
	return resp
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Patients & Medical Records
// ============================================================

// Patient represents patients table. ClinicID never changes after insert.
type Patient struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClinicID    uint       `gorm:"not null;index" json:"clinic_id"`
	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"size:100" json:"last_name"`
	NIC         string     `gorm:"column:nic;size:30;index" json:"nic"`
	Gender      string     `gorm:"size:10" json:"gender"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth"`
	Phone       string     `gorm:"size:30" json:"phone"`
	Address     string     `gorm:"size:255" json:"address"`
	BloodGroup  string     `gorm:"size:5" json:"blood_group"`
	Allergies   string     `gorm:"type:text" json:"allergies"`
	Remarks     string     `gorm:"type:text" json:"remarks"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Clinic      Clinic     `gorm:"foreignKey:ClinicID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Creator     User       `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

// FullName joins first and last name
func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// MedicalRecord represents the medicals table. Rows are append-only and
// belong to a clinic through their patient.
type MedicalRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text" json:"content"`
	PatientID uint      `gorm:"not null;index" json:"patient_id"`
	CreatedBy uint      `gorm:"not null;index" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Patient   Patient   `gorm:"foreignKey:PatientID;constraint:OnDelete:RESTRICT" json:"-"`
	Author    User      `gorm:"foreignKey:CreatedBy;constraint:OnDelete:RESTRICT" json:"-"`
}

func (MedicalRecord) TableName() string {
	return "medicals"
}

// ============================================================
// Migration
// ============================================================

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Clinic{},
		&User{},
		&RefreshToken{},
		&Patient{},
		&MedicalRecord{},
		// Catalog
		&DrugType{},
		&DosageOption{},
		&Drug{},
		&Stock{},
		// Prescriptions
		&Prescription{},
		&PrescriptionItem{},
		&Payment{},
		// Queue
		&Queue{},
		&QueueEntry{},
	)
}
