package services

import (
	"context"
	"errors"
	"testing"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantService_Resolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "Asia/Colombo")

	assert.False(t, scope.IsZero())
	assert.True(t, scope.IsAdmin())
	assert.Equal(t, "Asia/Colombo", scope.Location().String())

	t.Run("zero identity", func(t *testing.T) {
		_, err := env.tenants.Resolve(ctx, domain.StaffIdentity{})
		assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.tenants.Resolve(ctx, domain.StaffIdentity{UserID: 999})
		assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
	})

	t.Run("user without clinic", func(t *testing.T) {
		orphan := &models.User{Name: "orphan", Email: "orphan@staff.test", Password: "x", Role: "STAFF", IsActive: true}
		require.NoError(t, env.repos.Users.Create(ctx, orphan))

		_, err := env.tenants.Resolve(ctx, domain.StaffIdentity{UserID: orphan.ID})
		assert.True(t, errors.Is(err, domain.ErrNoClinicAssigned))
	})

	t.Run("inactive user", func(t *testing.T) {
		staff := env.newStaff(t, scope)
		user, err := env.repos.Users.GetByID(ctx, staff.UserID())
		require.NoError(t, err)
		user.IsActive = false
		require.NoError(t, env.repos.Users.Update(ctx, user))

		_, err = env.tenants.Resolve(ctx, domain.StaffIdentity{UserID: staff.UserID()})
		assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
	})
}

func TestTenantService_ResolveFollowsClinicChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newClinic(t, "alpha", "UTC")
	b := env.newClinic(t, "beta", "UTC")
	staff := env.newStaff(t, a)

	user, err := env.repos.Users.GetByID(ctx, staff.UserID())
	require.NoError(t, err)
	moved := b.ClinicID()
	user.ClinicID = &moved
	require.NoError(t, env.repos.Users.Update(ctx, user))

	scope, err := env.tenants.Resolve(ctx, domain.StaffIdentity{UserID: staff.UserID()})
	require.NoError(t, err)
	assert.Equal(t, b.ClinicID(), scope.ClinicID())
}

func TestUserService_CreateAccountStampsCallerClinic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.newClinic(t, "alpha", "UTC")
	staff := env.newStaff(t, admin)

	_, err := env.users.CreateAccount(ctx, staff, &CreateAccountInput{Name: "n", Email: "n@staff.test", Password: "abcdefg1"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	created, err := env.users.CreateAccount(ctx, admin, &CreateAccountInput{Name: "Nurse", Email: "Nurse@Staff.test", Password: "abcdefg1"})
	require.NoError(t, err)
	require.NotNil(t, created.ClinicID)
	assert.Equal(t, admin.ClinicID(), *created.ClinicID)
	assert.Equal(t, "nurse@staff.test", created.Email)
	assert.Equal(t, string(domain.RoleStaff), created.Role)

	_, err = env.users.CreateAccount(ctx, admin, &CreateAccountInput{Name: "Dup", Email: "nurse@staff.test", Password: "abcdefg1"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestUserService_UpdateAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.newClinic(t, "alpha", "UTC")
	other := env.newClinic(t, "beta", "UTC")
	staff := env.newStaff(t, admin)

	role := string(domain.RoleAdmin)
	updated, err := env.users.UpdateAccount(ctx, admin, staff.UserID(), &UpdateAccountInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, role, updated.Role)

	inactive := false
	_, err = env.users.UpdateAccount(ctx, admin, admin.UserID(), &UpdateAccountInput{IsActive: &inactive})
	assert.True(t, errors.Is(err, domain.ErrValidation), "admins cannot deactivate themselves")

	_, err = env.users.UpdateAccount(ctx, other, staff.UserID(), &UpdateAccountInput{IsActive: &inactive})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "accounts of other clinics are invisible")
}

func TestUserService_ListAccountsIsScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newClinic(t, "alpha", "UTC")
	b := env.newClinic(t, "beta", "UTC")
	env.newStaff(t, a)

	listA, err := env.users.ListAccounts(ctx, a)
	require.NoError(t, err)
	assert.Len(t, listA, 2)

	listB, err := env.users.ListAccounts(ctx, b)
	require.NoError(t, err)
	assert.Len(t, listB, 1)
}
