package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClinicScope_ZeroValue(t *testing.T) {
	var scope ClinicScope
	assert.True(t, scope.IsZero())
	assert.Equal(t, time.UTC, scope.Location())
	assert.False(t, scope.IsAdmin())
}

func TestClinicScope_Accessors(t *testing.T) {
	scope := NewClinicScope(7, 3, RoleAdmin, nil)

	assert.False(t, scope.IsZero())
	assert.Equal(t, uint(7), scope.ClinicID())
	assert.Equal(t, uint(3), scope.UserID())
	assert.Equal(t, RoleAdmin, scope.Role())
	assert.True(t, scope.IsAdmin())
	assert.Equal(t, time.UTC, scope.Location())
}

func TestClinicScope_TodayUsesClinicTimezone(t *testing.T) {
	colombo, err := time.LoadLocation("Asia/Colombo")
	require.NoError(t, err)

	// 20:00 UTC is already the next day in Colombo (UTC+05:30)
	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-01", NewClinicScope(1, 1, RoleStaff, time.UTC).Today(now))
	assert.Equal(t, "2024-03-02", NewClinicScope(1, 1, RoleStaff, colombo).Today(now))
}

func TestStaffIdentity_IsZero(t *testing.T) {
	assert.True(t, StaffIdentity{}.IsZero())
	assert.False(t, StaffIdentity{UserID: 1}.IsZero())
}

func TestErrorHelpersWrapSentinels(t *testing.T) {
	assert.True(t, errors.Is(Validationf("bad %s", "name"), ErrValidation))
	assert.True(t, errors.Is(NotFoundf("patient"), ErrNotFound))
	assert.True(t, errors.Is(Referencedf("drug", "prescriptions"), ErrReferentialIntegrity))
	assert.Contains(t, Referencedf("drug", "prescriptions").Error(), "drug is referenced by prescriptions")
}
