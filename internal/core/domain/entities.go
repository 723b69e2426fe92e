package domain

import "time"

// Role represents a staff role inside a clinic
type Role string

const (
	RoleStaff Role = "STAFF"
	RoleAdmin Role = "ADMIN"

	// RoleSystem is used by background jobs acting on behalf of a clinic
	RoleSystem Role = "SYSTEM"
)

// StaffIdentity is what the transport layer knows about the caller
// after the access token has been verified. It carries no clinic.
type StaffIdentity struct {
	UserID uint
	Email  string
}

// IsZero reports whether no identity was presented
func (i StaffIdentity) IsZero() bool {
	return i.UserID == 0
}

// ClinicScope is the resolved tenant context attached to one request.
// Fields are unexported so a scope can only come from NewClinicScope.
type ClinicScope struct {
	clinicID uint
	userID   uint
	role     Role
	loc      *time.Location
}

// NewClinicScope builds a scope for a clinic. A nil location means UTC.
func NewClinicScope(clinicID, userID uint, role Role, loc *time.Location) ClinicScope {
	if loc == nil {
		loc = time.UTC
	}
	return ClinicScope{clinicID: clinicID, userID: userID, role: role, loc: loc}
}

func (s ClinicScope) ClinicID() uint { return s.clinicID }
func (s ClinicScope) UserID() uint   { return s.userID }
func (s ClinicScope) Role() Role     { return s.role }

// Location returns the clinic's time zone
func (s ClinicScope) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// IsZero reports whether the scope was never resolved
func (s ClinicScope) IsZero() bool {
	return s.clinicID == 0
}

// IsAdmin returns true for clinic administrators
func (s ClinicScope) IsAdmin() bool {
	return s.role == RoleAdmin
}

// Today returns the clinic-local calendar date as YYYY-MM-DD
func (s ClinicScope) Today(now time.Time) string {
	return now.In(s.Location()).Format(DateLayout)
}

// DateLayout is the layout used for clinic-local calendar days
const DateLayout = "2006-01-02"

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
