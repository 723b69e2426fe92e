package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/config"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/password"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "secret123"

type testEnv struct {
	repos         *repositories.Repositories
	hub           *SSEHub
	tenants       *TenantService
	users         *UserService
	patients      *PatientService
	catalog       *CatalogService
	prescriptions *PrescriptionService
	queues        *QueueService
	dashboard     *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnv(repositories.NewMemoryRepositories())
}

// newEnv wires every service to repos
func newEnv(repos *repositories.Repositories) *testEnv {
	hub := NewSSEHub()
	return &testEnv{
		repos:         repos,
		hub:           hub,
		tenants:       NewTenantService(repos.Users, repos.Clinics),
		users:         NewUserService(repos.Users),
		patients:      NewPatientService(repos.Patients, repos.Records),
		catalog:       NewCatalogService(repos.Catalog),
		prescriptions: NewPrescriptionService(repos.Prescriptions, repos.Patients),
		queues:        NewQueueService(repos.Queues, repos.Clinics, hub),
		dashboard:     NewDashboardService(repos),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode:         "dev",
		DefaultTimezone: "UTC",
		Database:        config.DatabaseConfig{Driver: config.DriverMemory},
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
}

// newClinic registers a clinic with an admin and returns the admin's scope
func (e *testEnv) newClinic(t *testing.T, name, timezone string) domain.ClinicScope {
	t.Helper()
	hashed, err := password.HashWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	slug := fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
	clinic := &models.Clinic{Name: name, Email: slug + "@clinic.test", Timezone: timezone}
	admin := &models.User{
		Name:     name + " admin",
		Email:    slug + "@staff.test",
		Password: hashed,
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}
	require.NoError(t, e.repos.Clinics.CreateWithAdmin(context.Background(), clinic, admin))

	scope, err := e.tenants.Resolve(context.Background(), domain.StaffIdentity{UserID: admin.ID})
	require.NoError(t, err)
	return scope
}

// newStaff adds a STAFF account to the scope's clinic and returns its scope
func (e *testEnv) newStaff(t *testing.T, admin domain.ClinicScope) domain.ClinicScope {
	t.Helper()
	clinicID := admin.ClinicID()
	user := &models.User{
		ClinicID: &clinicID,
		Name:     "staff",
		Email:    fmt.Sprintf("staff-%d@staff.test", time.Now().UnixNano()),
		Password: "x",
		Role:     string(domain.RoleStaff),
		IsActive: true,
	}
	require.NoError(t, e.repos.Users.Create(context.Background(), user))
	scope, err := e.tenants.Resolve(context.Background(), domain.StaffIdentity{UserID: user.ID})
	require.NoError(t, err)
	return scope
}

func (e *testEnv) newPatient(t *testing.T, scope domain.ClinicScope, firstName string) *models.Patient {
	t.Helper()
	p, err := e.patients.CreatePatient(context.Background(), scope, &PatientInput{FirstName: firstName, LastName: "Test"})
	require.NoError(t, err)
	return p
}

func (e *testEnv) newDrug(t *testing.T, scope domain.ClinicScope, name string, quantity int64) *models.Drug {
	t.Helper()
	ctx := context.Background()
	drugType, err := e.catalog.CreateDrugType(ctx, scope, &DrugTypeInput{Name: "Tablet"})
	require.NoError(t, err)
	drug, err := e.catalog.CreateDrug(ctx, scope, &DrugInput{
		DrugTypeID: drugType.ID,
		Name:       name,
		UnitPrice:  decimal.NewFromInt(2),
		Quantity:   decimal.NewFromInt(quantity),
	})
	require.NoError(t, err)
	return drug
}

func (e *testEnv) newPrescription(t *testing.T, scope domain.ClinicScope, patientID, drugID uint, quantity int64) *models.Prescription {
	t.Helper()
	pr, err := e.prescriptions.CreatePrescription(context.Background(), scope, &CreatePrescriptionInput{
		PatientID: patientID,
		Items: []PrescriptionItemInput{
			{DrugID: drugID, Quantity: decimal.NewFromInt(quantity)},
		},
	})
	require.NoError(t, err)
	return pr
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// fixedClock returns a now func reading from *at
func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}
